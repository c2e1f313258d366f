// Package feedback turns explicit votes into bounded interest-weight
// adjustments.
package feedback

import (
	"sort"

	"feedranker/internal/domain"
)

const (
	// WeightMin and WeightMax bound every stored interest weight.
	WeightMin = 0.1
	WeightMax = 2.0

	voteAdjustment = 0.1
)

// ApplyVote returns a new weight snapshot with the article's category and
// source weights nudged by ±0.1 and clamped to [0.1, 2.0]. A retracted vote
// (value 0) leaves weights untouched: reversal would require an adjustment
// ledger, and the periodic backfill replay already corrects drift. The input
// snapshot is never mutated.
func ApplyVote(weights domain.WeightSet, categoryID, sourceID string, value domain.VoteValue) domain.WeightSet {
	if value == domain.VoteRetracted {
		return weights
	}

	adjustment := voteAdjustment
	if value < 0 {
		adjustment = -voteAdjustment
	}

	out := weights.Clone()
	if categoryID != "" {
		out.Categories[categoryID] = ClampWeight(out.Category(categoryID) + adjustment)
	}
	if sourceID != "" {
		out.Sources[sourceID] = ClampWeight(out.Source(sourceID) + adjustment)
	}
	return out
}

// ClampWeight forces a weight into the valid range.
func ClampWeight(w float64) float64 {
	if w < WeightMin {
		return WeightMin
	}
	if w > WeightMax {
		return WeightMax
	}
	return w
}

// Replay resets weights to defaults and re-applies the full chronological
// vote history through the same update function. The result is identical to
// incremental per-vote application, which makes it the recovery path for
// lost updates under concurrent voting.
func Replay(votes []domain.Vote, articles map[string]domain.Article) domain.WeightSet {
	ordered := make([]domain.Vote, len(votes))
	copy(ordered, votes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	weights := domain.NewWeightSet()
	for _, vote := range ordered {
		article, ok := articles[vote.ArticleID]
		if !ok {
			continue
		}
		weights = ApplyVote(weights, article.CategoryID, article.SourceID, vote.Value)
	}
	return weights
}
