package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"feedranker/internal/config"
	"feedranker/internal/infrastructure/embedding"
	"feedranker/internal/infrastructure/scheduler"
	"feedranker/internal/infrastructure/storage"
	"feedranker/internal/logging"
	"feedranker/internal/ports"
	"feedranker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	feed      *usecase.FeedService
	votes     *usecase.VoteService
	scheduler *usecase.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, catalog, settings, err := buildStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	var provider ports.EmbeddingProvider
	var embedder ports.ArticleEmbedder
	if cfg.Embedding.BaseURL != "" {
		client := embedding.NewClient(cfg.Embedding)
		provider = client
		embedder = client
	}

	feed := usecase.NewFeedService(usecase.FeedDeps{
		Feedback:   store,
		Catalog:    catalog,
		Embeddings: provider,
		Embedder:   embedder,
		Settings:   settings,
		Ranking:    cfg.Ranking,
		Logger:     baseLogger.With("component", "feed"),
	})
	votes := usecase.NewVoteService(store, catalog, baseLogger.With("component", "votes"))
	backfill := usecase.NewBackfillService(store, catalog, baseLogger.With("component", "backfill"))

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		feed:      feed,
		votes:     votes,
		scheduler: usecase.NewScheduler(driver, backfill),
		logger:    baseLogger,
	}, nil
}

// Feed exposes the ranking use case to the serving layer.
func (a *Application) Feed() *usecase.FeedService {
	return a.feed
}

// Votes exposes the vote use case to the serving layer.
func (a *Application) Votes() *usecase.VoteService {
	return a.votes
}

// Run starts the backfill scheduler and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("feedranker running", "driver", a.cfg.Database.Driver)

	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

func buildStore(cfg config.DatabaseConfig) (ports.FeedbackStore, ports.ArticleCatalog, ports.SettingsProvider, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		return repo, repo, repo, nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return repo, repo, repo, nil
	default:
		mem := storage.NewMemoryStore()
		return mem, mem, mem, nil
	}
}
