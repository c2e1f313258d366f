package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"feedranker/internal/domain"
	"feedranker/internal/ports"
)

// PostgresRepository persists feedback state in Postgres.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.FeedbackStore = (*PostgresRepository)(nil)
var _ ports.ArticleCatalog = (*PostgresRepository)(nil)
var _ ports.SettingsProvider = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Votes returns all vote rows for a user.
func (r *PostgresRepository) Votes(ctx context.Context, userID string) ([]domain.Vote, error) {
	query, args, err := r.builder.
		Select("user_id", "article_id", "value", "created_at").
		From("votes").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build votes query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return votes, nil
}

// Saves returns all bookmarks for a user.
func (r *PostgresRepository) Saves(ctx context.Context, userID string) ([]domain.Save, error) {
	query, args, err := r.builder.
		Select("user_id", "article_id", "created_at").
		From("saves").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build saves query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return saves, nil
}

// Impressions returns all view counters for a user.
func (r *PostgresRepository) Impressions(ctx context.Context, userID string) ([]domain.Impression, error) {
	query, args, err := r.builder.
		Select("user_id", "article_id", "view_count", "first_seen_at", "last_seen_at").
		From("impressions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build impressions query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return impressions, nil
}

// Weights returns all stored interest weights for a user.
func (r *PostgresRepository) Weights(ctx context.Context, userID string) ([]domain.InterestWeight, error) {
	query, args, err := r.builder.
		Select("user_id", "dimension", "key", "weight", "updated_at").
		From("interest_weights").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build weights query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return weights, nil
}

// UpsertVote creates or replaces the vote row for (user, article).
func (r *PostgresRepository) UpsertVote(ctx context.Context, vote domain.Vote) error {
	query, args, err := r.builder.
		Insert("votes").
		Columns("user_id", "article_id", "value", "created_at").
		Values(vote.UserID, vote.ArticleID, vote.Value, vote.CreatedAt).
		Suffix("ON CONFLICT (user_id, article_id) DO UPDATE SET value = EXCLUDED.value, created_at = EXCLUDED.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build vote upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// SetWeight creates or replaces one interest weight row.
func (r *PostgresRepository) SetWeight(ctx context.Context, weight domain.InterestWeight) error {
	query, args, err := r.builder.
		Insert("interest_weights").
		Columns("user_id", "dimension", "key", "weight", "updated_at").
		Values(weight.UserID, weight.Dimension, weight.Key, weight.Weight, weight.UpdatedAt).
		Suffix("ON CONFLICT (user_id, dimension, key) DO UPDATE SET weight = EXCLUDED.weight, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build weight upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert weight: %w", err)
	}
	return nil
}

// UsersWithVotes lists users holding at least one non-retracted vote.
func (r *PostgresRepository) UsersWithVotes(ctx context.Context) ([]string, error) {
	query, args, err := r.builder.
		Select("DISTINCT user_id").
		From("votes").
		Where(sq.NotEq{"value": 0}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build users query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return users, nil
}

// Article resolves a single article from the read-only catalog.
func (r *PostgresRepository) Article(ctx context.Context, id string) (domain.Article, bool, error) {
	articles, err := r.ArticlesByIDs(ctx, []string{id})
	if err != nil {
		return domain.Article{}, false, err
	}
	article, ok := articles[id]
	return article, ok, nil
}

// ArticlesByIDs resolves many articles; unknown ids are absent from the map.
func (r *PostgresRepository) ArticlesByIDs(ctx context.Context, ids []string) (map[string]domain.Article, error) {
	if len(ids) == 0 {
		return map[string]domain.Article{}, nil
	}

	query, args, err := r.builder.
		Select("id", "category_id", "source_id", "title", "summary", "url", "published_at").
		From("articles").
		Where(sq.Expr("id = ANY(?)", pq.StringArray(ids))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Article, len(ids))
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.CategoryID, &a.SourceID, &a.Title, &a.Summary, &a.URL, &a.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// ActiveSettings returns the active settings profile for a user, or the
// documented defaults when no profile exists.
func (r *PostgresRepository) ActiveSettings(ctx context.Context, userID string) (domain.UserAlgorithmSettings, error) {
	query, args, err := r.builder.
		Select("recency_decay_hours", "source_diversity_multiplier", "include_metadata_in_embeddings",
			"dynamic_similarity_strength", "exploration_factor").
		From("algorithm_settings").
		Where(sq.Eq{"user_id": userID, "active": true}).
		ToSql()
	if err != nil {
		return domain.UserAlgorithmSettings{}, fmt.Errorf("build settings query: %w", err)
	}

	var s domain.UserAlgorithmSettings
	row := r.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&s.RecencyDecayHours, &s.SourceDiversityMultiplier, &s.IncludeMetadataInEmbeddings,
		&s.DynamicSimilarityStrength, &s.ExplorationFactor)
	if err == sql.ErrNoRows {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.UserAlgorithmSettings{}, fmt.Errorf("scan settings: %w", err)
	}
	return s.Clamped(), nil
}
