package ranking

import (
	"hash/fnv"
	"math"
	"time"

	"feedranker/internal/domain"
)

const (
	baseScore = 100.0

	breakingWindowHours        = 2.0
	loggedOutBreakingBoost     = 2.5
	adoptionBreakingBoost      = 1.8
	highVolumeBreakingBoost    = 1.4
	recencyFloor               = 0.1
	onboardingRecencyFloor     = 0.3
	onboardingFlatWindowHours  = 24.0
	onboardingDecayHours       = 48.0
	seedCategoryBoost          = 3.0
	seedSourceBoost            = 2.0
	newCategoryBoost           = 2.0
	minuteTieBreakSpan         = 0.04
	idTieBreakSpan             = 0.02
)

// Inputs carries the read-only per-request context needed to score one
// candidate. Everything is passed explicitly so the scoring functions stay
// pure and testable.
type Inputs struct {
	Now      time.Time
	Settings domain.UserAlgorithmSettings
	Weights  domain.WeightSet

	// Seed is the user's first-ever interaction, if any (onboarding only).
	Seed *domain.SeedInteraction

	// InteractedCategories are categories the user has already voted or
	// saved in; onboarding boosts categories outside this set.
	InteractedCategories map[string]bool

	// ContentScore is the similarity-derived additive term, 0 when the
	// provider has no data for the candidate.
	ContentScore float64

	// HighVolumeSources dampens the breaking-news boost for sources that
	// publish constantly.
	HighVolumeSources map[string]bool
}

// Breakdown records how each component contributed to the final raw score.
type Breakdown struct {
	Recency  float64
	Breaking float64
	Weights  float64
	Boost    float64
	Content  float64
	Base     float64
	TieBreak float64
	Final    float64
}

// Score computes the raw score for one candidate under the given phase.
// The result is rounded to 2 decimal places for determinism.
func Score(phase domain.Phase, article domain.Article, in Inputs) Breakdown {
	in.Settings = in.Settings.Clamped()

	switch phase {
	case domain.PhaseOnboarding:
		return scoreOnboarding(article, in)
	case domain.PhaseAdoption:
		return scoreAdoption(article, in)
	default:
		return scoreLoggedOut(article, in)
	}
}

// scoreLoggedOut ranks purely on recency; the anonymous user has no weights
// and diversity is handled entirely by the reranker.
func scoreLoggedOut(article domain.Article, in Inputs) Breakdown {
	hoursOld := hoursSince(in.Now, article.PublishedAt)

	b := Breakdown{
		Recency:  recencyMultiplier(hoursOld, in.Settings.RecencyDecayHours, recencyFloor),
		Breaking: 1,
		Weights:  1,
		Boost:    1,
		TieBreak: 1,
	}
	if hoursOld < breakingWindowHours {
		b.Breaking = loggedOutBreakingBoost
	}

	b.Base = round2(baseScore * b.Recency * b.Breaking)
	b.Final = b.Base
	return b
}

// scoreOnboarding keeps recency nearly flat and deliberately skips the
// learned weights: the user has not voted enough for them to mean anything.
func scoreOnboarding(article domain.Article, in Inputs) Breakdown {
	hoursOld := hoursSince(in.Now, article.PublishedAt)

	b := Breakdown{
		Recency:  1,
		Breaking: 1,
		Weights:  1,
		Boost:    1,
		TieBreak: 1,
	}
	if hoursOld >= onboardingFlatWindowHours {
		b.Recency = math.Max(onboardingRecencyFloor, 1-hoursOld/onboardingDecayHours)
	}

	if in.Seed != nil {
		if in.Seed.CategoryID != "" && article.CategoryID == in.Seed.CategoryID {
			b.Boost *= seedCategoryBoost
		}
		if in.Seed.SourceID != "" && article.SourceID == in.Seed.SourceID {
			b.Boost *= seedSourceBoost
		}
	}
	if !in.InteractedCategories[article.CategoryID] {
		b.Boost *= newCategoryBoost
	}

	b.Content = in.ContentScore
	b.Base = round2(baseScore*b.Recency*b.Boost + b.Content)
	b.Final = b.Base
	return b
}

// scoreAdoption applies the full personalization: recency decay, learned
// category/source weights, content similarity, and a deterministic
// perturbation that spreads articles published in the same instant.
func scoreAdoption(article domain.Article, in Inputs) Breakdown {
	hoursOld := hoursSince(in.Now, article.PublishedAt)

	b := Breakdown{
		Recency:  recencyMultiplier(hoursOld, in.Settings.RecencyDecayHours, recencyFloor),
		Breaking: 1,
		Weights:  in.Weights.Category(article.CategoryID) * in.Weights.Source(article.SourceID),
		Boost:    1,
	}
	if hoursOld < breakingWindowHours {
		if in.HighVolumeSources[article.SourceID] {
			b.Breaking = highVolumeBreakingBoost
		} else {
			b.Breaking = adoptionBreakingBoost
		}
	}

	b.Content = in.ContentScore
	b.Base = round2(baseScore*b.Recency*b.Breaking*b.Weights + b.Content)
	b.TieBreak = tieBreak(article)
	b.Final = round2(b.Base * b.TieBreak)
	return b
}

func recencyMultiplier(hoursOld, decayHours, floor float64) float64 {
	return math.Max(floor, 1-hoursOld/decayHours)
}

func hoursSince(now time.Time, published time.Time) float64 {
	hours := now.Sub(published).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// tieBreak derives a bounded multiplicative perturbation from the publish
// minute (±4%) and the article id (±2%). It is a pure function of article
// fields: repeated requests see identical scores.
func tieBreak(article domain.Article) float64 {
	minute := float64(article.PublishedAt.UTC().Minute())
	minuteFactor := 1 + (minute/59*2-1)*minuteTieBreakSpan

	h := fnv.New32a()
	h.Write([]byte(article.ID))
	idFactor := 1 + (float64(h.Sum32()%1000)/999*2-1)*idTieBreakSpan

	return minuteFactor * idFactor
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
