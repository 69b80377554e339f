// Package anthropic implements llm.Generator with the official Anthropic SDK.
package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
)

const defaultModel = "claude-haiku-4-5-20251001"

// Generator sends prompts to the Messages API.
type Generator struct {
	client    sdk.Client
	hasKey    bool
	model     string
	maxTokens int64
}

// New creates an Anthropic generator from config. A non-empty BaseURL
// points the SDK at a proxy or test server.
func New(cfg config.LLMConfig) *Generator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Generator{
		client:    sdk.NewClient(opts...),
		hasKey:    cfg.APIKey != "",
		model:     model,
		maxTokens: maxTokens,
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "anthropic" }

// Generate sends the prompt as one user message and joins the text blocks
// of the reply.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if !g.hasKey {
		return "", fallback.NotConfigured("anthropic: missing API key")
	}
	model := req.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = g.model
	}

	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: g.maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &fallback.StatusError{Service: "anthropic", StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fallback.Malformed("anthropic: empty response")
	}
	slog.Debug("anthropic generation complete", "model", model,
		"input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens)
	return text, nil
}

// Close is a no-op; the SDK client holds no resources.
func (g *Generator) Close() error { return nil }
