package ports

import (
	"context"
	"time"

	"feedranker/internal/domain"
)

// FeedbackStore exposes a user's explicit feedback and learned weights.
// Reads are request-scoped snapshots; only the vote path writes.
type FeedbackStore interface {
	Votes(ctx context.Context, userID string) ([]domain.Vote, error)
	Saves(ctx context.Context, userID string) ([]domain.Save, error)
	Impressions(ctx context.Context, userID string) ([]domain.Impression, error)
	Weights(ctx context.Context, userID string) ([]domain.InterestWeight, error)
	UpsertVote(ctx context.Context, vote domain.Vote) error
	SetWeight(ctx context.Context, weight domain.InterestWeight) error
	UsersWithVotes(ctx context.Context) ([]string, error)
}

// ArticleCatalog is a read-only view over ingested articles, used to resolve
// category and source for feedback events.
type ArticleCatalog interface {
	Article(ctx context.Context, id string) (domain.Article, bool, error)
	ArticlesByIDs(ctx context.Context, ids []string) (map[string]domain.Article, error)
}

// EmbeddingProvider answers vector lookups against an external index.
// A missing embedding is not an error: lookups return nil vectors and batch
// results may be partial.
type EmbeddingProvider interface {
	Embedding(ctx context.Context, articleID string) ([]float64, error)
	EmbeddingsBatch(ctx context.Context, articleIDs []string) (map[string][]float64, error)
}

// ArticleEmbedder computes an embedding on demand from article text, for
// candidates the index has not seen yet. Optional capability of a provider.
type ArticleEmbedder interface {
	EmbedArticle(ctx context.Context, article domain.Article, includeMetadata bool) ([]float64, error)
}

// SettingsProvider resolves the active algorithm settings for a user.
// Implementations return defaults when no row exists.
type SettingsProvider interface {
	ActiveSettings(ctx context.Context, userID string) (domain.UserAlgorithmSettings, error)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
