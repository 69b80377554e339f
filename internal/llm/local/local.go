// Package local implements llm.Generator against a self-hosted model.
//
// It supports Ollama's /api/generate and any OpenAI-compatible chat
// endpoint (Ollama, vLLM, llama.cpp server). No credential is required.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
)

const defaultEndpoint = "http://localhost:11434/api/generate"

// Generator posts prompts to a local model server.
type Generator struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a new local generator from config. BaseURL is the full
// endpoint URL.
func New(cfg config.LLMConfig) *Generator {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = "llama3"
	}
	return &Generator{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "local" }

// Generate sends the prompt. If the endpoint ends with /api/generate the
// Ollama format is used, otherwise OpenAI chat completions.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := req.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = g.model
	}

	var reqBody map[string]any
	if strings.HasSuffix(g.endpoint, "/api/generate") {
		reqBody = map[string]any{
			"model":  model,
			"prompt": req.Prompt,
			"stream": false,
		}
	} else {
		reqBody = map[string]any{
			"model": model,
			"messages": []map[string]string{
				{"role": "user", "content": req.Prompt},
			},
			"temperature": 0.2,
			"stream":      false,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "local: marshalling request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "local: creating request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "local: LLM request")
	}
	defer resp.Body.Close()

	if err := fallback.CheckResponse("local", resp); err != nil {
		return "", err
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "local: reading LLM response")
	}

	text := strings.TrimSpace(extractContent(respData))
	if text == "" {
		return "", fallback.Malformed("local: empty response")
	}
	slog.Debug("local generation complete", "model", model, "text_length", len(text))
	return text, nil
}

// Close is a no-op for the local generator.
func (g *Generator) Close() error { return nil }

// extractContent pulls the model text out of either response shape.
func extractContent(data []byte) string {
	// OpenAI-compatible: {"choices": [{"message": {"content": "..."}}]}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content
	}

	// Ollama: {"response": "..."}
	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil {
		return ollamaResp.Response
	}

	return string(data)
}
