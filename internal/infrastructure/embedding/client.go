// Package embedding adapts the external vector index behind the
// EmbeddingProvider port. Lookups time out rather than block ranking, and a
// missing vector is a nil result, not an error.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"feedranker/internal/config"
	"feedranker/internal/domain"
	"feedranker/internal/ports"
)

const defaultBatchSize = 20

// Client talks to an HTTP embedding similarity service.
type Client struct {
	endpoint  string
	apiKey    string
	batchSize int
	http      *http.Client
}

var _ ports.EmbeddingProvider = (*Client)(nil)
var _ ports.ArticleEmbedder = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.EmbeddingConfig) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Client{
		endpoint:  cfg.BaseURL,
		apiKey:    cfg.APIKey,
		batchSize: batchSize,
		http:      &http.Client{Timeout: cfg.Timeout()},
	}
}

// Embedding fetches the stored vector for one article; nil when absent.
func (c *Client) Embedding(ctx context.Context, articleID string) ([]float64, error) {
	vectors, err := c.EmbeddingsBatch(ctx, []string{articleID})
	if err != nil {
		return nil, err
	}
	return vectors[articleID], nil
}

// EmbeddingsBatch fetches vectors for many articles, chunking requests so a
// single call to the provider stays bounded. Partial results are expected:
// ids the index has never seen are simply absent from the map.
func (c *Client) EmbeddingsBatch(ctx context.Context, articleIDs []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(articleIDs))
	for start := 0; start < len(articleIDs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(articleIDs) {
			end = len(articleIDs)
		}

		var resp struct {
			Embeddings map[string][]float64 `json:"embeddings"`
		}
		payload := map[string]any{"ids": articleIDs[start:end]}
		if err := c.post(ctx, "/embeddings/batch", payload, &resp); err != nil {
			return nil, fmt.Errorf("batch lookup: %w", err)
		}
		for id, vector := range resp.Embeddings {
			if len(vector) > 0 {
				out[id] = vector
			}
		}
	}
	return out, nil
}

// EmbedArticle asks the provider to compute a vector from article text for
// candidates the index has not stored yet.
func (c *Client) EmbedArticle(ctx context.Context, article domain.Article, includeMetadata bool) ([]float64, error) {
	payload := map[string]any{
		"id":   article.ID,
		"text": BuildEmbedText(article, includeMetadata),
	}

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := c.post(ctx, "/embeddings/embed", payload, &resp); err != nil {
		return nil, fmt.Errorf("embed article %s: %w", article.ID, err)
	}
	return resp.Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
