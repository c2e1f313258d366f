package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedranker/internal/config"
	"feedranker/internal/domain"
	"feedranker/internal/ports"
	"feedranker/internal/ranking"
)

const defaultPageSize = 20

// FeedDeps wires all driven adapters into the ranking use case.
type FeedDeps struct {
	Feedback   ports.FeedbackStore
	Catalog    ports.ArticleCatalog
	Embeddings ports.EmbeddingProvider
	Embedder   ports.ArticleEmbedder
	Settings   ports.SettingsProvider
	Ranking    config.RankingConfig
	Logger     *slog.Logger
}

// FeedService implements the rankFeed operation: it is a pure read that
// scores, reranks, and normalizes an externally supplied candidate set.
type FeedService struct {
	feedback   ports.FeedbackStore
	catalog    ports.ArticleCatalog
	embeddings ports.EmbeddingProvider
	embedder   ports.ArticleEmbedder
	settings   ports.SettingsProvider
	cfg        config.RankingConfig
	logger     *slog.Logger
}

// NewFeedService constructs the ranking use case.
func NewFeedService(deps FeedDeps) *FeedService {
	return &FeedService{
		feedback:   deps.Feedback,
		catalog:    deps.Catalog,
		embeddings: deps.Embeddings,
		embedder:   deps.Embedder,
		settings:   deps.Settings,
		cfg:        deps.Ranking,
		logger:     deps.Logger,
	}
}

// RankFeedInput carries one ranking request. An empty UserID means the
// requester is anonymous. Candidates arrive already filtered for retention
// and activation by the ingestion side.
type RankFeedInput struct {
	UserID         string
	Candidates     []domain.Article
	CategoryFilter string
	Offset         int
	Limit          int
	Now            time.Time
}

// RankFeedOutput is the ordered, scored page plus a continuation flag.
type RankFeedOutput struct {
	Items   []domain.ScoredArticle
	HasMore bool
}

// userFeedback is the request-scoped snapshot of everything the scoring
// engine reads for one user.
type userFeedback struct {
	votes       []domain.Vote
	saves       []domain.Save
	impressions []domain.Impression
	weights     domain.WeightSet
	settings    domain.UserAlgorithmSettings
}

// RankFeed scores the candidate set for the user and returns the requested
// page. It has no side effects.
func (s *FeedService) RankFeed(ctx context.Context, input RankFeedInput) (RankFeedOutput, error) {
	requestID := uuid.NewString()
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > s.cfg.MaxFeedSize {
		limit = s.cfg.MaxFeedSize
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	fb, err := s.fetchFeedback(ctx, input.UserID)
	if err != nil {
		return RankFeedOutput{}, err
	}

	phase := ranking.SelectPhase(input.UserID != "", ranking.CountPhaseVotes(fb.votes))
	s.debug("rank feed", "request_id", requestID, "user", input.UserID,
		"phase", string(phase), "candidates", len(input.Candidates))

	votesByArticle := map[string]domain.VoteValue{}
	for _, v := range fb.votes {
		votesByArticle[v.ArticleID] = v.Value
	}
	savedArticles := map[string]bool{}
	for _, save := range fb.saves {
		savedArticles[save.ArticleID] = true
	}

	candidates := s.filterCandidates(input, fb, votesByArticle, savedArticles, now)
	if len(candidates) == 0 {
		return RankFeedOutput{Items: []domain.ScoredArticle{}, HasMore: false}, nil
	}

	inputs := ranking.Inputs{
		Now:               now,
		Settings:          fb.settings,
		Weights:           fb.weights,
		HighVolumeSources: toSet(s.cfg.HighVolumeSources),
	}

	if phase == domain.PhaseOnboarding {
		inputs.Seed, inputs.InteractedCategories = s.resolveInteractions(ctx, fb)
	}

	contentScores := s.contentScores(ctx, phase, candidates, fb, votesByArticle, savedArticles)

	scored := make([]domain.ScoredArticle, 0, len(candidates))
	for _, article := range candidates {
		in := inputs
		in.ContentScore = contentScores[article.ID]
		breakdown := ranking.Score(phase, article, in)
		scored = append(scored, domain.ScoredArticle{
			Article:  article,
			RawScore: breakdown.Final,
			UserVote: votesByArticle[article.ID],
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RawScore > scored[j].RawScore
	})

	ranked := ranking.Rerank(scored, ranking.RerankPolicy{
		Phase:           phase,
		SourceDiversity: fb.settings.SourceDiversityMultiplier,
		MaxResults:      s.cfg.MaxFeedSize,
	})
	ranked = ranking.Normalize(ranked, s.cfg.TargetMean, s.cfg.TargetStdDev)

	if offset >= len(ranked) {
		return RankFeedOutput{Items: []domain.ScoredArticle{}, HasMore: false}, nil
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return RankFeedOutput{
		Items:   ranked[offset:end],
		HasMore: end < len(ranked),
	}, nil
}

// fetchFeedback loads the user's votes, saves, impressions, weights, and
// settings concurrently; all reads complete before scoring begins. The
// anonymous user gets an empty snapshot with default settings.
func (s *FeedService) fetchFeedback(ctx context.Context, userID string) (userFeedback, error) {
	fb := userFeedback{
		weights:  domain.NewWeightSet(),
		settings: domain.DefaultSettings(),
	}
	if userID == "" || s.feedback == nil {
		return fb, nil
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		fetchErr   error
		weightRows []domain.InterestWeight
	)
	record := func(err error) {
		mu.Lock()
		if err != nil && fetchErr == nil {
			fetchErr = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		votes, err := s.feedback.Votes(ctx, userID)
		fb.votes = votes
		record(err)
	}()
	go func() {
		defer wg.Done()
		saves, err := s.feedback.Saves(ctx, userID)
		fb.saves = saves
		record(err)
	}()
	go func() {
		defer wg.Done()
		impressions, err := s.feedback.Impressions(ctx, userID)
		fb.impressions = impressions
		record(err)
	}()
	go func() {
		defer wg.Done()
		rows, err := s.feedback.Weights(ctx, userID)
		weightRows = rows
		record(err)
	}()
	wg.Wait()

	if fetchErr != nil {
		return userFeedback{}, fmt.Errorf("fetch feedback for %s: %w", userID, fetchErr)
	}
	fb.weights = domain.WeightSetFrom(weightRows)

	if s.settings != nil {
		settings, err := s.settings.ActiveSettings(ctx, userID)
		if err != nil {
			s.debug("settings lookup failed, using defaults", "user", userID, "error", err)
		} else {
			fb.settings = settings
		}
	}
	fb.settings = fb.settings.Clamped()

	return fb, nil
}

// filterCandidates drops articles that must never reach scoring: ones the
// user downvoted, and ones seen twice or more inside the suppression window
// without any interaction.
func (s *FeedService) filterCandidates(input RankFeedInput, fb userFeedback, votes map[string]domain.VoteValue, saved map[string]bool, now time.Time) []domain.Article {
	suppressed := map[string]bool{}
	windowStart := now.Add(-s.cfg.SuppressionWindow())
	for _, imp := range fb.impressions {
		if imp.Count < 2 || imp.LastSeenAt.Before(windowStart) {
			continue
		}
		if votes[imp.ArticleID] != domain.VoteRetracted || saved[imp.ArticleID] {
			continue
		}
		suppressed[imp.ArticleID] = true
	}

	out := make([]domain.Article, 0, len(input.Candidates))
	for _, article := range input.Candidates {
		if input.CategoryFilter != "" && article.CategoryID != input.CategoryFilter {
			continue
		}
		if votes[article.ID] == domain.VoteDown {
			continue
		}
		if suppressed[article.ID] {
			continue
		}
		out = append(out, article)
	}
	return out
}

// resolveInteractions derives the onboarding seed interaction (the earliest
// vote or save) and the set of categories the user has already touched.
// Catalog misses degrade to no boost rather than failing the request.
func (s *FeedService) resolveInteractions(ctx context.Context, fb userFeedback) (*domain.SeedInteraction, map[string]bool) {
	interacted := map[string]bool{}
	if s.catalog == nil {
		return nil, interacted
	}

	type interaction struct {
		articleID string
		at        time.Time
	}
	var all []interaction
	for _, v := range fb.votes {
		if v.Value != domain.VoteRetracted {
			all = append(all, interaction{v.ArticleID, v.CreatedAt})
		}
	}
	for _, save := range fb.saves {
		all = append(all, interaction{save.ArticleID, save.CreatedAt})
	}
	if len(all) == 0 {
		return nil, interacted
	}

	ids := make([]string, 0, len(all))
	for _, it := range all {
		ids = append(ids, it.articleID)
	}
	articles, err := s.catalog.ArticlesByIDs(ctx, ids)
	if err != nil {
		s.debug("catalog lookup failed, skipping onboarding boosts", "error", err)
		return nil, interacted
	}

	var seed *domain.SeedInteraction
	earliest := time.Time{}
	for _, it := range all {
		article, ok := articles[it.articleID]
		if !ok {
			continue
		}
		interacted[article.CategoryID] = true
		if seed == nil || it.at.Before(earliest) {
			earliest = it.at
			seed = &domain.SeedInteraction{CategoryID: article.CategoryID, SourceID: article.SourceID}
		}
	}
	return seed, interacted
}

// contentScores resolves the similarity term for every candidate. Provider
// failures and missing vectors degrade to a zero contribution; ranking is
// never blocked on the vector index.
func (s *FeedService) contentScores(ctx context.Context, phase domain.Phase, candidates []domain.Article, fb userFeedback, votes map[string]domain.VoteValue, saved map[string]bool) map[string]float64 {
	scores := map[string]float64{}
	if phase == domain.PhaseLoggedOut || s.embeddings == nil {
		return scores
	}

	likedIDs := make([]string, 0)
	dislikedIDs := make([]string, 0)
	for id, value := range votes {
		switch value {
		case domain.VoteUp:
			likedIDs = append(likedIDs, id)
		case domain.VoteDown:
			dislikedIDs = append(dislikedIDs, id)
		}
	}
	for id := range saved {
		if votes[id] == domain.VoteRetracted {
			likedIDs = append(likedIDs, id)
		}
	}
	if len(likedIDs) == 0 && len(dislikedIDs) == 0 {
		return scores
	}

	liked := s.lookupVectors(ctx, likedIDs)
	disliked := s.lookupVectors(ctx, dislikedIDs)
	if len(liked) == 0 && len(disliked) == 0 {
		return scores
	}

	candidateIDs := make([]string, 0, len(candidates))
	for _, article := range candidates {
		candidateIDs = append(candidateIDs, article.ID)
	}
	candidateVectors, err := s.embeddings.EmbeddingsBatch(ctx, candidateIDs)
	if err != nil {
		s.debug("candidate embedding lookup failed", "error", err)
		candidateVectors = map[string][]float64{}
	}

	likedSet := vectorSet(liked)
	dislikedSet := vectorSet(disliked)
	for _, article := range candidates {
		vector, ok := candidateVectors[article.ID]
		if !ok && s.embedder != nil {
			embedded, embedErr := s.embedder.EmbedArticle(ctx, article, fb.settings.IncludeMetadataInEmbeddings)
			if embedErr != nil {
				continue
			}
			vector = embedded
		}
		if len(vector) == 0 {
			continue
		}
		scores[article.ID] = ranking.ContentScore(vector, likedSet, dislikedSet, fb.settings.DynamicSimilarityStrength)
	}
	return scores
}

func (s *FeedService) lookupVectors(ctx context.Context, ids []string) map[string][]float64 {
	if len(ids) == 0 {
		return map[string][]float64{}
	}
	vectors, err := s.embeddings.EmbeddingsBatch(ctx, ids)
	if err != nil {
		s.debug("embedding batch lookup failed", "error", err)
		return map[string][]float64{}
	}
	return vectors
}

func vectorSet(vectors map[string][]float64) [][]float64 {
	out := make([][]float64, 0, len(vectors))
	for _, v := range vectors {
		if len(v) > 0 {
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func (s *FeedService) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
