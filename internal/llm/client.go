// Package llm talks to an OpenAI-compatible chat completion endpoint
// (Qianfan by default) and classifies its failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"jamesfarrell.me/youtube-chat/internal/config"
)

const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// ErrEmptyContent means the endpoint answered without any message content.
var ErrEmptyContent = errors.New("llm: empty message content")

// UpstreamError is an error object reported by the endpoint itself.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream error (status %d): %s", e.StatusCode, e.Message)
}

type Message struct {
	Role    string
	Content string
}

// Client sends single-shot chat completions. It keeps no conversation state.
type Client struct {
	api    *openai.Client
	model  string
	apiKey string
}

func NewClient(cfg config.LLMConfig) *Client {
	return NewClientWithHTTP(cfg, http.DefaultTransport)
}

// NewClientWithHTTP is NewClient with a custom base transport.
func NewClientWithHTTP(cfg config.LLMConfig, base http.RoundTripper) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Transport: &errorEnvelopeTransport{base: base}}

	return &Client{
		api:    openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete submits messages and returns the content of the first choice.
// A zero timeout leaves the deadline of ctx untouched.
//
// Errors are one of: *UpstreamError, ErrEmptyContent, or a wrapped
// transport error (including context.DeadlineExceeded).
func (c *Client) Complete(ctx context.Context, messages []Message, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    redactSecrets(apiErr.Message, c.apiKey),
			}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyContent
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}
