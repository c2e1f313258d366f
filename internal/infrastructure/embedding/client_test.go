package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedranker/internal/config"
	"feedranker/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.EmbeddingConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		TimeoutSeconds: 5,
		BatchSize:      2,
	})
}

func TestEmbeddingsBatchChunksRequests(t *testing.T) {
	t.Parallel()

	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/embeddings/batch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}

		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.IDs) > 2 {
			t.Errorf("chunk larger than batch size: %v", req.IDs)
		}

		embeddings := map[string][]float64{}
		for _, id := range req.IDs {
			if id == "missing" {
				continue
			}
			embeddings[id] = []float64{1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	})

	vectors, err := client.EmbeddingsBatch(context.Background(), []string{"a1", "a2", "missing"})
	if err != nil {
		t.Fatalf("EmbeddingsBatch error: %v", err)
	}

	if calls != 2 {
		t.Fatalf("expected 2 chunked calls, got %d", calls)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %v", vectors)
	}
	if _, ok := vectors["missing"]; ok {
		t.Fatalf("absent id must not appear in result")
	}
}

func TestEmbeddingSingleLookup(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": map[string][]float64{"a1": {0.5, 0.5}},
		})
	})

	vector, err := client.Embedding(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Embedding error: %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.5 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedArticleSendsAssembledText(t *testing.T) {
	t.Parallel()

	var gotText string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotText = req.Text
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2}})
	})

	article := domain.Article{ID: "a1", Title: "Hello", Summary: "<p>World</p>", CategoryID: "tech"}
	vector, err := client.EmbedArticle(context.Background(), article, true)
	if err != nil {
		t.Fatalf("EmbedArticle error: %v", err)
	}
	if len(vector) != 2 {
		t.Fatalf("unexpected vector %v", vector)
	}
	if want := BuildEmbedText(article, true); gotText != want {
		t.Fatalf("payload text %q, want %q", gotText, want)
	}
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := client.EmbeddingsBatch(context.Background(), []string{"a1"}); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}
