package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"feedranker/internal/config"
	"feedranker/internal/domain"
	"feedranker/internal/infrastructure/storage"
)

var feedNow = time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)

func testRankingConfig() config.RankingConfig {
	return config.RankingConfig{
		OnboardingVoteThreshold: 10,
		TargetMean:              50,
		TargetStdDev:            20,
		MaxFeedSize:             100,
		SuppressionWindowHours:  72,
	}
}

func newTestFeedService(store *storage.MemoryStore) *FeedService {
	return NewFeedService(FeedDeps{
		Feedback: store,
		Catalog:  store,
		Settings: store,
		Ranking:  testRankingConfig(),
	})
}

func addArticle(store *storage.MemoryStore, id, category, source string, age time.Duration) domain.Article {
	article := domain.Article{
		ID:          id,
		CategoryID:  category,
		SourceID:    source,
		Title:       "title " + id,
		PublishedAt: feedNow.Add(-age),
	}
	store.AddArticle(article)
	return article
}

func TestRankFeedExcludesDownvoted(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	a1 := addArticle(store, "a1", "tech", "s1", time.Hour)
	a2 := addArticle(store, "a2", "sports", "s2", time.Hour)
	_ = store.UpsertVote(context.Background(), domain.Vote{
		UserID: "u1", ArticleID: "a1", Value: domain.VoteDown, CreatedAt: feedNow,
	})

	svc := newTestFeedService(store)
	out, err := svc.RankFeed(context.Background(), RankFeedInput{
		UserID:     "u1",
		Candidates: []domain.Article{a1, a2},
		Now:        feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}

	if len(out.Items) != 1 || out.Items[0].Article.ID != "a2" {
		t.Fatalf("downvoted article must be excluded, got %+v", out.Items)
	}
}

func TestRankFeedSuppressesRepeatedImpressions(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	seen := addArticle(store, "seen", "tech", "s1", time.Hour)
	fresh := addArticle(store, "fresh", "sports", "s2", time.Hour)
	saved := addArticle(store, "saved", "science", "s3", time.Hour)
	stale := addArticle(store, "stale", "culture", "s4", time.Hour)

	store.AddImpression(domain.Impression{
		UserID: "u1", ArticleID: "seen", Count: 2,
		FirstSeenAt: feedNow.Add(-4 * time.Hour), LastSeenAt: feedNow.Add(-time.Hour),
	})
	// Saved articles stay visible no matter how often they were seen.
	store.AddImpression(domain.Impression{
		UserID: "u1", ArticleID: "saved", Count: 5,
		FirstSeenAt: feedNow.Add(-4 * time.Hour), LastSeenAt: feedNow.Add(-time.Hour),
	})
	store.AddSave(domain.Save{UserID: "u1", ArticleID: "saved", CreatedAt: feedNow.Add(-2 * time.Hour)})
	// Impressions outside the suppression window no longer count.
	store.AddImpression(domain.Impression{
		UserID: "u1", ArticleID: "stale", Count: 3,
		FirstSeenAt: feedNow.Add(-200 * time.Hour), LastSeenAt: feedNow.Add(-100 * time.Hour),
	})

	svc := newTestFeedService(store)
	out, err := svc.RankFeed(context.Background(), RankFeedInput{
		UserID:     "u1",
		Candidates: []domain.Article{seen, fresh, saved, stale},
		Now:        feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}

	got := map[string]bool{}
	for _, item := range out.Items {
		got[item.Article.ID] = true
	}
	if got["seen"] {
		t.Fatalf("article seen twice without interaction must be suppressed")
	}
	for _, id := range []string{"fresh", "saved", "stale"} {
		if !got[id] {
			t.Fatalf("article %s missing from output: %v", id, got)
		}
	}
}

func TestRankFeedEmptyCandidates(t *testing.T) {
	t.Parallel()

	svc := newTestFeedService(storage.NewMemoryStore())
	out, err := svc.RankFeed(context.Background(), RankFeedInput{UserID: "u1", Now: feedNow})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if len(out.Items) != 0 || out.HasMore {
		t.Fatalf("empty candidate set must yield empty page, got %+v", out)
	}
}

func TestRankFeedPagination(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	var candidates []domain.Article
	for i := 0; i < 5; i++ {
		candidates = append(candidates,
			addArticle(store, fmt.Sprintf("a%d", i), fmt.Sprintf("cat%d", i), "s1", time.Duration(i)*time.Hour))
	}

	svc := newTestFeedService(store)

	first, err := svc.RankFeed(context.Background(), RankFeedInput{
		Candidates: candidates, Limit: 2, Now: feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if len(first.Items) != 2 || !first.HasMore {
		t.Fatalf("expected first page of 2 with more, got %d hasMore=%v", len(first.Items), first.HasMore)
	}

	last, err := svc.RankFeed(context.Background(), RankFeedInput{
		Candidates: candidates, Limit: 2, Offset: 4, Now: feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if len(last.Items) != 1 || last.HasMore {
		t.Fatalf("expected final page of 1, got %d hasMore=%v", len(last.Items), last.HasMore)
	}

	past, err := svc.RankFeed(context.Background(), RankFeedInput{
		Candidates: candidates, Limit: 2, Offset: 10, Now: feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if len(past.Items) != 0 || past.HasMore {
		t.Fatalf("offset past the end must be empty, got %+v", past)
	}
}

func TestRankFeedCategoryFilter(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	tech := addArticle(store, "a1", "tech", "s1", time.Hour)
	sports := addArticle(store, "a2", "sports", "s2", time.Hour)

	svc := newTestFeedService(store)
	out, err := svc.RankFeed(context.Background(), RankFeedInput{
		Candidates:     []domain.Article{tech, sports},
		CategoryFilter: "tech",
		Now:            feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Article.ID != "a1" {
		t.Fatalf("expected only the tech article, got %+v", out.Items)
	}
}

func TestRankFeedLoggedOutFavorsRecency(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	fresh := addArticle(store, "fresh", "tech", "s1", time.Hour)
	old := addArticle(store, "old", "sports", "s2", 30*time.Hour)

	svc := newTestFeedService(store)
	out, err := svc.RankFeed(context.Background(), RankFeedInput{
		Candidates: []domain.Article{old, fresh},
		Now:        feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if out.Items[0].Article.ID != "fresh" {
		t.Fatalf("expected fresh article first, got %s", out.Items[0].Article.ID)
	}
	if out.Items[0].RawScore <= out.Items[1].RawScore {
		t.Fatalf("raw scores out of order: %v", out.Items)
	}
}

func TestRankFeedAttachesUserVote(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	a1 := addArticle(store, "a1", "tech", "s1", time.Hour)
	_ = store.UpsertVote(context.Background(), domain.Vote{
		UserID: "u1", ArticleID: "a1", Value: domain.VoteUp, CreatedAt: feedNow,
	})

	svc := newTestFeedService(store)
	out, err := svc.RankFeed(context.Background(), RankFeedInput{
		UserID:     "u1",
		Candidates: []domain.Article{a1},
		Now:        feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if out.Items[0].UserVote != domain.VoteUp {
		t.Fatalf("expected user vote +1, got %d", out.Items[0].UserVote)
	}
}

func TestRankFeedAdoptionUsesWeights(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	liked := addArticle(store, "liked-cat", "tech", "s1", 10*time.Hour)
	other := addArticle(store, "other-cat", "sports", "s2", 10*time.Hour)

	// Ten historical upvotes push the user into adoption.
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("hist-%d", i)
		addArticle(store, id, "tech", "s1", 100*time.Hour)
		_ = store.UpsertVote(context.Background(), domain.Vote{
			UserID: "u1", ArticleID: id, Value: domain.VoteUp,
			CreatedAt: feedNow.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	_ = store.SetWeight(context.Background(), domain.InterestWeight{
		UserID: "u1", Dimension: domain.DimensionCategory, Key: "tech", Weight: 2.0, UpdatedAt: feedNow,
	})

	svc := newTestFeedService(store)
	out, err := svc.RankFeed(context.Background(), RankFeedInput{
		UserID:     "u1",
		Candidates: []domain.Article{other, liked},
		Now:        feedNow,
	})
	if err != nil {
		t.Fatalf("RankFeed error: %v", err)
	}
	if out.Items[0].Article.ID != "liked-cat" {
		t.Fatalf("weighted category must rank first, got %s", out.Items[0].Article.ID)
	}

	normalized := map[string]bool{}
	for _, item := range out.Items {
		normalized[item.Article.ID] = item.AdjustedScore >= 0
	}
	if !normalized[liked.ID] || !normalized[other.ID] {
		t.Fatalf("adjusted scores must be non-negative: %+v", out.Items)
	}
}
