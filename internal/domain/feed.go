package domain

import "time"

// Article is a core entity describing a single aggregated content item.
// Articles are created by the ingestion side and never mutated here.
type Article struct {
	ID          string
	CategoryID  string
	SourceID    string
	Title       string
	Summary     string
	URL         string
	PublishedAt time.Time
}

// VoteValue is the explicit user signal on an article.
type VoteValue int

const (
	VoteDown      VoteValue = -1
	VoteRetracted VoteValue = 0
	VoteUp        VoteValue = 1
)

// Valid reports whether the value is one of the three allowed signals.
func (v VoteValue) Valid() bool {
	return v >= VoteDown && v <= VoteUp
}

// Vote records one user's explicit signal on one article.
// Unique per (UserID, ArticleID); a retraction keeps the row with value 0.
type Vote struct {
	UserID    string
	ArticleID string
	Value     VoteValue
	CreatedAt time.Time
}

// Save is a bookmark. Saves join the liked set for similarity scoring but
// do not count toward the onboarding vote threshold.
type Save struct {
	UserID    string
	ArticleID string
	CreatedAt time.Time
}

// Impression counts how often a user has seen an article without acting on it.
type Impression struct {
	UserID      string
	ArticleID   string
	Count       int
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// WeightDimension distinguishes the two interest-weight keys.
type WeightDimension string

const (
	DimensionCategory WeightDimension = "category"
	DimensionSource   WeightDimension = "source"
)

// InterestWeight is a per-user multiplier for one category or one source.
type InterestWeight struct {
	UserID    string
	Dimension WeightDimension
	Key       string
	Weight    float64
	UpdatedAt time.Time
}
