package ranking

import (
	"math"
	"sort"

	"feedranker/internal/domain"
)

const (
	forcedRotationSlots     = 6
	defaultMaxResults       = 100
	sourcePenaltyFloor      = 0.7
	sourcePenaltyCoefSpan   = 0.1
	adoptionLookaheadWindow = 20
)

// RerankPolicy selects how the greedy reranker balances the result list.
type RerankPolicy struct {
	Phase           domain.Phase
	SourceDiversity float64
	MaxResults      int
}

// Rerank reorders score-sorted candidates so that no category or source
// dominates the top of the feed. Phase A forces a category rotation across
// the first slots; phase B continues with occupancy balancing (per category
// for logged-out and onboarding, per source with a diminishing-returns
// penalty for adoption). Greedy by construction: the pool is at most a few
// hundred entries per request, so a globally optimal interleave is not worth
// its cost.
func Rerank(items []domain.ScoredArticle, policy RerankPolicy) []domain.ScoredArticle {
	if len(items) == 0 {
		return nil
	}

	pool := make([]domain.ScoredArticle, len(items))
	copy(pool, items)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].RawScore > pool[j].RawScore
	})

	limit := policy.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	out := make([]domain.ScoredArticle, 0, min(limit, len(pool)))
	occupancy := map[string]int{}

	// Phase A: forced category rotation. The first slots touch as many
	// distinct categories as the pool offers, up to six.
	slots := min(forcedRotationSlots, distinctCategories(pool))
	usedCategories := map[string]bool{}
	for len(out) < slots {
		idx := -1
		for i, item := range pool {
			if !usedCategories[item.Article.CategoryID] {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		picked := pool[idx]
		usedCategories[picked.Article.CategoryID] = true
		occupancy[balanceKey(picked, policy.Phase)]++
		out = append(out, picked)
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	// Phase B: balanced continuation over the remaining pool.
	for len(pool) > 0 && len(out) < limit {
		var idx int
		if policy.Phase == domain.PhaseAdoption {
			idx = pickDiminishing(pool, occupancy, policy.SourceDiversity)
		} else {
			idx = pickBalanced(pool, occupancy, policy.Phase)
		}
		picked := pool[idx]
		occupancy[balanceKey(picked, policy.Phase)]++
		out = append(out, picked)
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	return out
}

// pickBalanced finds the highest-scoring candidate whose occupancy count is
// within +1 of the minimum across keys still present in the pool, falling
// back to the overall best when the pool has no fair choice left.
func pickBalanced(pool []domain.ScoredArticle, occupancy map[string]int, phase domain.Phase) int {
	minOcc := math.MaxInt
	for _, item := range pool {
		if c := occupancy[balanceKey(item, phase)]; c < minOcc {
			minOcc = c
		}
	}
	for i, item := range pool {
		if occupancy[balanceKey(item, phase)] <= minOcc+1 {
			return i
		}
	}
	return 0
}

// pickDiminishing scores a bounded lookahead window with a per-source
// diminishing-returns penalty and takes the best adjusted candidate.
func pickDiminishing(pool []domain.ScoredArticle, occupancy map[string]int, sourceDiversity float64) int {
	if sourceDiversity < 0 {
		sourceDiversity = 0
	}
	if sourceDiversity > 1 {
		sourceDiversity = 1
	}
	coef := sourcePenaltyCoefSpan * sourceDiversity

	window := min(adoptionLookaheadWindow, len(pool))
	best, bestAdjusted := 0, math.Inf(-1)
	for i := 0; i < window; i++ {
		count := occupancy[pool[i].Article.SourceID]
		adjusted := pool[i].RawScore * math.Max(sourcePenaltyFloor, 1-coef*float64(count))
		if adjusted > bestAdjusted {
			best, bestAdjusted = i, adjusted
		}
	}
	return best
}

func balanceKey(item domain.ScoredArticle, phase domain.Phase) string {
	if phase == domain.PhaseAdoption {
		return item.Article.SourceID
	}
	return item.Article.CategoryID
}

func distinctCategories(pool []domain.ScoredArticle) int {
	seen := map[string]bool{}
	for _, item := range pool {
		seen[item.Article.CategoryID] = true
	}
	return len(seen)
}
