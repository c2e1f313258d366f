package feedback

import (
	"math"
	"testing"
	"time"

	"feedranker/internal/domain"
)

func TestApplyVoteAdjustsBothDimensions(t *testing.T) {
	t.Parallel()

	weights := domain.NewWeightSet()
	updated := ApplyVote(weights, "tech", "wire", domain.VoteUp)

	if got := updated.Category("tech"); math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected category weight 1.1, got %v", got)
	}
	if got := updated.Source("wire"); math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected source weight 1.1, got %v", got)
	}
}

func TestApplyVoteDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	weights := domain.NewWeightSet()
	weights.Categories["tech"] = 1.5

	_ = ApplyVote(weights, "tech", "wire", domain.VoteDown)

	if weights.Categories["tech"] != 1.5 {
		t.Fatalf("input snapshot was mutated: %v", weights.Categories["tech"])
	}
	if _, ok := weights.Sources["wire"]; ok {
		t.Fatalf("input snapshot gained a source entry")
	}
}

func TestApplyVoteClampsRepeatedApplication(t *testing.T) {
	t.Parallel()

	weights := domain.NewWeightSet()
	for i := 0; i < 30; i++ {
		weights = ApplyVote(weights, "tech", "wire", domain.VoteDown)
	}
	if got := weights.Category("tech"); got != WeightMin {
		t.Fatalf("expected floor %v, got %v", WeightMin, got)
	}

	for i := 0; i < 30; i++ {
		weights = ApplyVote(weights, "tech", "wire", domain.VoteUp)
	}
	if got := weights.Source("wire"); got != WeightMax {
		t.Fatalf("expected cap %v, got %v", WeightMax, got)
	}
}

func TestApplyVoteRetractionIsNoOp(t *testing.T) {
	t.Parallel()

	weights := ApplyVote(domain.NewWeightSet(), "tech", "wire", domain.VoteUp)
	after := ApplyVote(weights, "tech", "wire", domain.VoteRetracted)

	if after.Category("tech") != weights.Category("tech") {
		t.Fatalf("retraction changed category weight")
	}
	if after.Source("wire") != weights.Source("wire") {
		t.Fatalf("retraction changed source weight")
	}
}

func TestClampWeight(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want float64 }{
		{0.05, 0.1},
		{0.1, 0.1},
		{1.0, 1.0},
		{2.0, 2.0},
		{2.3, 2.0},
		{-4, 0.1},
	}
	for _, tc := range cases {
		if got := ClampWeight(tc.in); got != tc.want {
			t.Fatalf("ClampWeight(%v): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestReplayMatchesIncrementalApplication(t *testing.T) {
	t.Parallel()

	articles := map[string]domain.Article{
		"a1": {ID: "a1", CategoryID: "tech", SourceID: "wire"},
		"a2": {ID: "a2", CategoryID: "sports", SourceID: "blog"},
		"a3": {ID: "a3", CategoryID: "tech", SourceID: "blog"},
	}

	base := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)
	votes := []domain.Vote{
		{ArticleID: "a1", Value: domain.VoteUp, CreatedAt: base},
		{ArticleID: "a2", Value: domain.VoteDown, CreatedAt: base.Add(time.Minute)},
		{ArticleID: "a3", Value: domain.VoteUp, CreatedAt: base.Add(2 * time.Minute)},
		{ArticleID: "a1", Value: domain.VoteRetracted, CreatedAt: base.Add(3 * time.Minute)},
		{ArticleID: "a2", Value: domain.VoteUp, CreatedAt: base.Add(4 * time.Minute)},
	}

	incremental := domain.NewWeightSet()
	for _, v := range votes {
		article := articles[v.ArticleID]
		incremental = ApplyVote(incremental, article.CategoryID, article.SourceID, v.Value)
	}

	// Replay receives the history out of order and must sort it itself.
	shuffled := []domain.Vote{votes[3], votes[0], votes[4], votes[1], votes[2]}
	replayed := Replay(shuffled, articles)

	for key, want := range incremental.Categories {
		if got := replayed.Category(key); math.Abs(got-want) > 1e-9 {
			t.Fatalf("category %s: incremental %v, replayed %v", key, want, got)
		}
	}
	for key, want := range incremental.Sources {
		if got := replayed.Source(key); math.Abs(got-want) > 1e-9 {
			t.Fatalf("source %s: incremental %v, replayed %v", key, want, got)
		}
	}
	if len(replayed.Categories) != len(incremental.Categories) {
		t.Fatalf("category key sets differ: %v vs %v", replayed.Categories, incremental.Categories)
	}
}

func TestReplaySkipsUnknownArticles(t *testing.T) {
	t.Parallel()

	votes := []domain.Vote{
		{ArticleID: "ghost", Value: domain.VoteUp, CreatedAt: time.Now()},
	}
	replayed := Replay(votes, map[string]domain.Article{})
	if len(replayed.Categories) != 0 || len(replayed.Sources) != 0 {
		t.Fatalf("unknown article must not produce weights")
	}
}
