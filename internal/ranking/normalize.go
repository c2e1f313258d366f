package ranking

import (
	"math"

	"feedranker/internal/domain"
)

// Normalize maps the batch's raw scores onto a fixed display distribution
// (target mean and standard deviation) via population z-scores. When every
// raw score is identical the whole batch gets the target mean. Adjusted
// scores are a display aid only; ordering was fixed by raw score before
// this runs.
func Normalize(items []domain.ScoredArticle, targetMean, targetStdDev float64) []domain.ScoredArticle {
	if len(items) == 0 {
		return items
	}

	var sum float64
	for _, item := range items {
		sum += item.RawScore
	}
	mean := sum / float64(len(items))

	var variance float64
	for _, item := range items {
		d := item.RawScore - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(items)))

	for i := range items {
		if stddev == 0 {
			items[i].AdjustedScore = math.Max(0, math.Round(targetMean))
			continue
		}
		z := (items[i].RawScore - mean) / stddev
		items[i].AdjustedScore = math.Max(0, math.Round(targetMean+targetStdDev*z))
	}
	return items
}
