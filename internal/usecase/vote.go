package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedranker/internal/domain"
	"feedranker/internal/feedback"
	"feedranker/internal/ports"
)

// VoteService implements the recordVote operation: upsert the vote row and
// push the bounded weight adjustment. The next rankFeed call picks up the
// new weights; nothing is returned synchronously.
type VoteService struct {
	feedback ports.FeedbackStore
	catalog  ports.ArticleCatalog
	logger   *slog.Logger
}

// NewVoteService constructs the vote use case.
func NewVoteService(store ports.FeedbackStore, catalog ports.ArticleCatalog, logger *slog.Logger) *VoteService {
	return &VoteService{feedback: store, catalog: catalog, logger: logger}
}

// RecordVote stores the vote and applies the weight update for non-zero
// values. The read-modify-write on weights is not locked across users'
// concurrent votes; a lost update is acceptable for this soft signal and
// the scheduled backfill replay converges the result.
func (s *VoteService) RecordVote(ctx context.Context, userID, articleID string, value domain.VoteValue) error {
	if !value.Valid() {
		return fmt.Errorf("invalid vote value %d for article %s", value, articleID)
	}

	now := time.Now().UTC()
	vote := domain.Vote{UserID: userID, ArticleID: articleID, Value: value, CreatedAt: now}
	if err := s.feedback.UpsertVote(ctx, vote); err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}

	if value == domain.VoteRetracted {
		return nil
	}

	article, ok, err := s.catalog.Article(ctx, articleID)
	if err != nil {
		return fmt.Errorf("resolve article %s: %w", articleID, err)
	}
	if !ok {
		s.debug("vote on unknown article, skipping weight update", "article", articleID)
		return nil
	}

	rows, err := s.feedback.Weights(ctx, userID)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	updated := feedback.ApplyVote(domain.WeightSetFrom(rows), article.CategoryID, article.SourceID, value)

	if err := s.writeWeights(ctx, userID, updated, article.CategoryID, article.SourceID, now); err != nil {
		return err
	}

	s.debug("vote recorded", "user", userID, "article", articleID, "value", int(value))
	return nil
}

func (s *VoteService) writeWeights(ctx context.Context, userID string, weights domain.WeightSet, categoryID, sourceID string, now time.Time) error {
	if categoryID != "" {
		err := s.feedback.SetWeight(ctx, domain.InterestWeight{
			UserID:    userID,
			Dimension: domain.DimensionCategory,
			Key:       categoryID,
			Weight:    weights.Category(categoryID),
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("set category weight: %w", err)
		}
	}
	if sourceID != "" {
		err := s.feedback.SetWeight(ctx, domain.InterestWeight{
			UserID:    userID,
			Dimension: domain.DimensionSource,
			Key:       sourceID,
			Weight:    weights.Source(sourceID),
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("set source weight: %w", err)
		}
	}
	return nil
}

func (s *VoteService) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
