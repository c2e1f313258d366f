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

// BackfillService rebuilds interest weights from vote history. Replaying the
// chronological history through the same update function yields exactly what
// incremental application would have produced, which repairs any updates
// lost to concurrent voting.
type BackfillService struct {
	feedback ports.FeedbackStore
	catalog  ports.ArticleCatalog
	logger   *slog.Logger
}

// NewBackfillService constructs the backfill use case.
func NewBackfillService(store ports.FeedbackStore, catalog ports.ArticleCatalog, logger *slog.Logger) *BackfillService {
	return &BackfillService{feedback: store, catalog: catalog, logger: logger}
}

// ReplayUser resets the user's weights to defaults and replays every vote.
func (s *BackfillService) ReplayUser(ctx context.Context, userID string) error {
	votes, err := s.feedback.Votes(ctx, userID)
	if err != nil {
		return fmt.Errorf("load votes for %s: %w", userID, err)
	}

	ids := make([]string, 0, len(votes))
	for _, v := range votes {
		ids = append(ids, v.ArticleID)
	}
	articles, err := s.catalog.ArticlesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve vote articles for %s: %w", userID, err)
	}

	weights := feedback.Replay(votes, articles)
	now := time.Now().UTC()

	for key, weight := range weights.Categories {
		err := s.feedback.SetWeight(ctx, domain.InterestWeight{
			UserID: userID, Dimension: domain.DimensionCategory, Key: key, Weight: weight, UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("write category weight %s: %w", key, err)
		}
	}
	for key, weight := range weights.Sources {
		err := s.feedback.SetWeight(ctx, domain.InterestWeight{
			UserID: userID, Dimension: domain.DimensionSource, Key: key, Weight: weight, UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("write source weight %s: %w", key, err)
		}
	}
	return nil
}

// ReplayAll replays every user that has voted. Per-user failures are logged
// and skipped so one broken history cannot stall the whole run.
func (s *BackfillService) ReplayAll(ctx context.Context) error {
	users, err := s.feedback.UsersWithVotes(ctx)
	if err != nil {
		return fmt.Errorf("list voting users: %w", err)
	}

	for _, userID := range users {
		if err := s.ReplayUser(ctx, userID); err != nil {
			if s.logger != nil {
				s.logger.Error("weight replay failed", "user", userID, "error", err)
			}
			continue
		}
	}
	if s.logger != nil {
		s.logger.Debug("weight backfill done", "users", len(users))
	}
	return nil
}
