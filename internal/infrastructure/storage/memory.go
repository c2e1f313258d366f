// Package storage provides feedback-store adapters: Postgres and SQLite for
// deployments, plus an in-memory variant for tests and zero-config runs.
package storage

import (
	"context"
	"sync"

	"feedranker/internal/domain"
	"feedranker/internal/ports"
)

// MemoryStore keeps all feedback state in process. It backs tests and the
// default wiring when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	articles    map[string]domain.Article
	votes       map[string]map[string]domain.Vote
	saves       map[string]map[string]domain.Save
	impressions map[string]map[string]domain.Impression
	weights     map[string]map[string]domain.InterestWeight
	settings    map[string]domain.UserAlgorithmSettings
}

var _ ports.FeedbackStore = (*MemoryStore)(nil)
var _ ports.ArticleCatalog = (*MemoryStore)(nil)
var _ ports.SettingsProvider = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles:    map[string]domain.Article{},
		votes:       map[string]map[string]domain.Vote{},
		saves:       map[string]map[string]domain.Save{},
		impressions: map[string]map[string]domain.Impression{},
		weights:     map[string]map[string]domain.InterestWeight{},
		settings:    map[string]domain.UserAlgorithmSettings{},
	}
}

// AddArticle registers an article in the catalog view.
func (m *MemoryStore) AddArticle(article domain.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[article.ID] = article
}

// AddSave registers a bookmark.
func (m *MemoryStore) AddSave(save domain.Save) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saves[save.UserID] == nil {
		m.saves[save.UserID] = map[string]domain.Save{}
	}
	m.saves[save.UserID][save.ArticleID] = save
}

// AddImpression records a view counter snapshot.
func (m *MemoryStore) AddImpression(impression domain.Impression) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.impressions[impression.UserID] == nil {
		m.impressions[impression.UserID] = map[string]domain.Impression{}
	}
	m.impressions[impression.UserID][impression.ArticleID] = impression
}

// SetSettings stores the active settings for a user.
func (m *MemoryStore) SetSettings(userID string, settings domain.UserAlgorithmSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[userID] = settings
}

// Votes returns all vote rows for a user.
func (m *MemoryStore) Votes(_ context.Context, userID string) ([]domain.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Vote, 0, len(m.votes[userID]))
	for _, v := range m.votes[userID] {
		out = append(out, v)
	}
	return out, nil
}

// Saves returns all bookmarks for a user.
func (m *MemoryStore) Saves(_ context.Context, userID string) ([]domain.Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Save, 0, len(m.saves[userID]))
	for _, s := range m.saves[userID] {
		out = append(out, s)
	}
	return out, nil
}

// Impressions returns all view counters for a user.
func (m *MemoryStore) Impressions(_ context.Context, userID string) ([]domain.Impression, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Impression, 0, len(m.impressions[userID]))
	for _, imp := range m.impressions[userID] {
		out = append(out, imp)
	}
	return out, nil
}

// Weights returns all stored interest weights for a user.
func (m *MemoryStore) Weights(_ context.Context, userID string) ([]domain.InterestWeight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.InterestWeight, 0, len(m.weights[userID]))
	for _, w := range m.weights[userID] {
		out = append(out, w)
	}
	return out, nil
}

// UpsertVote creates or replaces the vote row for (user, article).
func (m *MemoryStore) UpsertVote(_ context.Context, vote domain.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.votes[vote.UserID] == nil {
		m.votes[vote.UserID] = map[string]domain.Vote{}
	}
	m.votes[vote.UserID][vote.ArticleID] = vote
	return nil
}

// SetWeight creates or replaces one interest weight row.
func (m *MemoryStore) SetWeight(_ context.Context, weight domain.InterestWeight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.weights[weight.UserID] == nil {
		m.weights[weight.UserID] = map[string]domain.InterestWeight{}
	}
	m.weights[weight.UserID][weightKey(weight.Dimension, weight.Key)] = weight
	return nil
}

// UsersWithVotes lists users holding at least one non-retracted vote.
func (m *MemoryStore) UsersWithVotes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.votes))
	for userID, votes := range m.votes {
		for _, v := range votes {
			if v.Value != domain.VoteRetracted {
				out = append(out, userID)
				break
			}
		}
	}
	return out, nil
}

// Article resolves a single article from the catalog view.
func (m *MemoryStore) Article(_ context.Context, id string) (domain.Article, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	article, ok := m.articles[id]
	return article, ok, nil
}

// ArticlesByIDs resolves many articles; unknown ids are absent from the map.
func (m *MemoryStore) ArticlesByIDs(_ context.Context, ids []string) (map[string]domain.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Article, len(ids))
	for _, id := range ids {
		if article, ok := m.articles[id]; ok {
			out[id] = article
		}
	}
	return out, nil
}

// ActiveSettings returns the user's settings or the documented defaults.
func (m *MemoryStore) ActiveSettings(_ context.Context, userID string) (domain.UserAlgorithmSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if settings, ok := m.settings[userID]; ok {
		return settings, nil
	}
	return domain.DefaultSettings(), nil
}

func weightKey(dimension domain.WeightDimension, key string) string {
	return string(dimension) + "/" + key
}
