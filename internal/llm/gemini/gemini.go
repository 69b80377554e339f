// Package gemini implements llm.Generator against the Google Generative
// Language API (generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Generator calls Gemini's generateContent endpoint.
type Generator struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int64
	client    *http.Client
}

// New creates a Gemini generator from config.
func New(cfg config.LLMConfig) *Generator {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Generator{
		apiKey:    cfg.APIKey,
		baseURL:   base,
		model:     model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int64 `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

// Generate sends the prompt as a single content part.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if g.apiKey == "" {
		return "", fallback.NotConfigured("gemini: missing API key")
	}
	model := req.Model
	if model == "" {
		model = g.model
	}

	body := generateRequest{Contents: []content{{Parts: []part{{Text: req.Prompt}}}}}
	if g.maxTokens > 0 {
		body.GenerationConfig = &generationConfig{MaxOutputTokens: g.maxTokens}
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", eris.Wrap(err, "gemini: marshalling request")
	}

	endpoint := g.baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "gemini: creating request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "gemini: request")
	}
	defer resp.Body.Close()

	if err := fallback.CheckResponse("gemini", resp); err != nil {
		return "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "gemini: reading response")
	}

	text := strings.TrimSpace(gjson.GetBytes(data, "candidates.0.content.parts.0.text").String())
	if text == "" {
		return "", fallback.Malformed("gemini: empty response")
	}
	slog.Debug("gemini generation complete", "model", model, "text_length", len(text))
	return text, nil
}

// Close is a no-op for the Gemini generator.
func (g *Generator) Close() error { return nil }
