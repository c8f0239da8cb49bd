package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jamesfarrell.me/youtube-chat/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.EmbeddingsConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "text-embedding-ada-002"})
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-ada-002", req.Model)
		assert.Equal(t, []string{"first", "second"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0.3,0.4]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}
		],"model":"text-embedding-ada-002"}`))
	})

	got, err := c.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, got)
}

func TestEmbedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no data", http.StatusOK, `{"object":"list","data":[]}`},
		{"empty vector", http.StatusOK, `{"object":"list","data":[{"index":0,"embedding":[]}]}`},
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Embed(context.Background(), "text")
			assert.Error(t, err)
		})
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	c := NewClient(config.EmbeddingsConfig{APIKey: "sk-test"})
	got, err := c.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
