// Package llm defines the text-generation collaborator used for intent
// resolution and advisory phrasing.
//
// Backends live in subpackages (gemini, anthropic, openai, local). Each one
// returns fallback.ErrNotConfigured when its credential is missing and
// fallback.ErrMalformed when the model answers with empty text, so callers
// can treat every failure as "LLM unavailable".
package llm

import "context"

// Request is one generation call.
type Request struct {
	// Model overrides the backend's configured model when non-empty.
	Model string

	// Prompt is the full prompt text. Backends send it as a single user turn.
	Prompt string
}

// Generator produces free text for a prompt.
type Generator interface {
	// Name returns the backend identifier (e.g. "gemini", "anthropic").
	Name() string

	// Generate sends one request and returns the trimmed, non-empty text.
	// It never retries.
	Generate(ctx context.Context, req Request) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}
