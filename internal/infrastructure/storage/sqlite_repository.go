package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"feedranker/internal/domain"
	"feedranker/internal/ports"
)

// SQLiteRepository persists feedback state in SQLite for single-node
// deployments. Writes serialize behind SQLite's lock, which suits the vote
// path's soft-signal semantics.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.FeedbackStore = (*SQLiteRepository)(nil)
var _ ports.ArticleCatalog = (*SQLiteRepository)(nil)
var _ ports.SettingsProvider = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens or creates the database at the given path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		published_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS votes (
		user_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		value INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, article_id)
	);
	CREATE TABLE IF NOT EXISTS saves (
		user_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, article_id)
	);
	CREATE TABLE IF NOT EXISTS impressions (
		user_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		view_count INTEGER NOT NULL DEFAULT 0,
		first_seen_at DATETIME NOT NULL,
		last_seen_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, article_id)
	);
	CREATE TABLE IF NOT EXISTS interest_weights (
		user_id TEXT NOT NULL,
		dimension TEXT NOT NULL,
		key TEXT NOT NULL,
		weight REAL NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, dimension, key)
	);
	CREATE TABLE IF NOT EXISTS algorithm_settings (
		user_id TEXT NOT NULL,
		profile TEXT NOT NULL DEFAULT 'default',
		active INTEGER NOT NULL DEFAULT 1,
		recency_decay_hours REAL NOT NULL DEFAULT 24,
		source_diversity_multiplier REAL NOT NULL DEFAULT 0.5,
		include_metadata_in_embeddings INTEGER NOT NULL DEFAULT 0,
		dynamic_similarity_strength REAL NOT NULL DEFAULT 0.5,
		exploration_factor REAL NOT NULL DEFAULT 0.1,
		PRIMARY KEY (user_id, profile)
	);`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Votes returns all vote rows for a user.
func (r *SQLiteRepository) Votes(ctx context.Context, userID string) ([]domain.Vote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, article_id, value, created_at FROM votes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.UserID, &v.ArticleID, &v.Value, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// Saves returns all bookmarks for a user.
func (r *SQLiteRepository) Saves(ctx context.Context, userID string) ([]domain.Save, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, article_id, created_at FROM saves WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()

	var saves []domain.Save
	for rows.Next() {
		var s domain.Save
		if err := rows.Scan(&s.UserID, &s.ArticleID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		saves = append(saves, s)
	}
	return saves, rows.Err()
}

// Impressions returns all view counters for a user.
func (r *SQLiteRepository) Impressions(ctx context.Context, userID string) ([]domain.Impression, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, article_id, view_count, first_seen_at, last_seen_at
		 FROM impressions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query impressions: %w", err)
	}
	defer rows.Close()

	var impressions []domain.Impression
	for rows.Next() {
		var imp domain.Impression
		if err := rows.Scan(&imp.UserID, &imp.ArticleID, &imp.Count, &imp.FirstSeenAt, &imp.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan impression: %w", err)
		}
		impressions = append(impressions, imp)
	}
	return impressions, rows.Err()
}

// Weights returns all stored interest weights for a user.
func (r *SQLiteRepository) Weights(ctx context.Context, userID string) ([]domain.InterestWeight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, dimension, key, weight, updated_at
		 FROM interest_weights WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()

	var weights []domain.InterestWeight
	for rows.Next() {
		var w domain.InterestWeight
		if err := rows.Scan(&w.UserID, &w.Dimension, &w.Key, &w.Weight, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		weights = append(weights, w)
	}
	return weights, rows.Err()
}

// UpsertVote creates or replaces the vote row for (user, article).
func (r *SQLiteRepository) UpsertVote(ctx context.Context, vote domain.Vote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (user_id, article_id, value, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, article_id) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		vote.UserID, vote.ArticleID, vote.Value, vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// SetWeight creates or replaces one interest weight row.
func (r *SQLiteRepository) SetWeight(ctx context.Context, weight domain.InterestWeight) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO interest_weights (user_id, dimension, key, weight, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, dimension, key) DO UPDATE SET weight = excluded.weight, updated_at = excluded.updated_at`,
		weight.UserID, weight.Dimension, weight.Key, weight.Weight, weight.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert weight: %w", err)
	}
	return nil
}

// UsersWithVotes lists users holding at least one non-retracted vote.
func (r *SQLiteRepository) UsersWithVotes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM votes WHERE value <> 0`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// Article resolves a single article from the read-only catalog.
func (r *SQLiteRepository) Article(ctx context.Context, id string) (domain.Article, bool, error) {
	var a domain.Article
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, source_id, title, summary, url, published_at FROM articles WHERE id = ?`, id).
		Scan(&a.ID, &a.CategoryID, &a.SourceID, &a.Title, &a.Summary, &a.URL, &a.PublishedAt)
	if err == sql.ErrNoRows {
		return domain.Article{}, false, nil
	}
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("query article: %w", err)
	}
	return a, true, nil
}

// ArticlesByIDs resolves many articles; unknown ids are absent from the map.
func (r *SQLiteRepository) ArticlesByIDs(ctx context.Context, ids []string) (map[string]domain.Article, error) {
	out := make(map[string]domain.Article, len(ids))
	for _, id := range ids {
		article, ok, err := r.Article(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = article
		}
	}
	return out, nil
}

// ActiveSettings returns the active settings profile for a user, or the
// documented defaults when no profile exists.
func (r *SQLiteRepository) ActiveSettings(ctx context.Context, userID string) (domain.UserAlgorithmSettings, error) {
	var s domain.UserAlgorithmSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT recency_decay_hours, source_diversity_multiplier, include_metadata_in_embeddings,
		        dynamic_similarity_strength, exploration_factor
		 FROM algorithm_settings WHERE user_id = ? AND active = 1`, userID).
		Scan(&s.RecencyDecayHours, &s.SourceDiversityMultiplier, &s.IncludeMetadataInEmbeddings,
			&s.DynamicSimilarityStrength, &s.ExplorationFactor)
	if err == sql.ErrNoRows {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.UserAlgorithmSettings{}, fmt.Errorf("scan settings: %w", err)
	}
	return s.Clamped(), nil
}
