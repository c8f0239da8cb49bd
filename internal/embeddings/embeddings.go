// Package embeddings turns text into vectors for semantic segment search.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"jamesfarrell.me/youtube-chat/internal/config"
)

var ErrNoEmbedding = errors.New("embeddings: response carried no vectors")

type Client struct {
	api   *openai.Client
	model openai.EmbeddingModel
}

func NewClient(cfg config.EmbeddingsConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = openai.AdaEmbeddingV2
	}
	return &Client{api: openai.NewClientWithConfig(oc), model: model}
}

// Embed converts text to an embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request, returning vectors in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding creation failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d inputs", ErrNoEmbedding, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: bad item at index %d", ErrNoEmbedding, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("%w: missing index %d", ErrNoEmbedding, i)
		}
	}
	return out, nil
}
