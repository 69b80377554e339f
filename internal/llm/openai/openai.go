// Package openai implements llm.Generator using the OpenAI Chat Completions
// API, or any server that speaks the same protocol.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Generator uses the Chat Completions endpoint.
type Generator struct {
	apiKey    string
	chatURL   string
	model     string
	maxTokens int64
	client    *http.Client
}

// New creates a new OpenAI generator from config.
func New(cfg config.LLMConfig) *Generator {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = "gpt-4o-mini"
	}
	return &Generator{
		apiKey:    cfg.APIKey,
		chatURL:   base + "/chat/completions",
		model:     model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "openai" }

// Generate sends the prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if g.apiKey == "" {
		return "", fallback.NotConfigured("openai: missing API key")
	}
	model := req.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = g.model
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: 0.2,
		MaxTokens:   g.maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "openai: marshalling chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.chatURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "openai: creating chat request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "openai: chat request")
	}
	defer resp.Body.Close()

	if err := fallback.CheckResponse("openai", resp); err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fallback.Malformed("openai: decoding chat response: %v", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fallback.Malformed("openai: no choices returned")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fallback.Malformed("openai: empty response")
	}
	slog.Debug("openai generation complete", "model", model, "text_length", len(text))
	return text, nil
}

// Close is a no-op for the OpenAI generator.
func (g *Generator) Close() error { return nil }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
