package domain

// Phase selects which scoring and diversity policy applies to a request.
type Phase string

const (
	PhaseLoggedOut  Phase = "logged_out"
	PhaseOnboarding Phase = "onboarding"
	PhaseAdoption   Phase = "adoption"
)

// ScoredArticle is the ephemeral ranking output for one article. RawScore
// fixes the ordering; AdjustedScore is display-only and never feeds back
// into ranking.
type ScoredArticle struct {
	Article       Article
	RawScore      float64
	AdjustedScore float64
	UserVote      VoteValue
}

// SeedInteraction is the user's very first vote, save, or click captured
// before full signup; onboarding scoring boosts its category and source once.
type SeedInteraction struct {
	CategoryID string
	SourceID   string
}
