// Package llm wraps the hosted Gemini API behind the single call the chat
// flow needs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/shopdesk/supportbot/internal/utils"
)

var ErrEmptyReply = errors.New("llm: model returned no text")

// Client issues chat completions against a fixed Gemini model. One attempt
// per request; the first failure is terminal for that request.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func NewClient(ctx context.Context, cfg utils.GeminiConfig, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}

	return &Client{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// GenerateReply sends the assembled prompt and returns the raw model text.
func (c *Client) GenerateReply(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		builder.WriteString(part.Text)
	}

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}

	c.logger.Debugw("model reply generated",
		"model", c.model,
		"duration_ms", time.Since(started).Milliseconds(),
		"prompt_chars", len(prompt),
	)

	return text, nil
}
