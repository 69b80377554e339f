package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
)

func newTestGenerator(t *testing.T, h http.HandlerFunc, key string) *Generator {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(config.LLMConfig{APIKey: key, BaseURL: ts.URL, Model: "gemini-2.0-flash", MaxTokens: 64, Timeout: 5 * time.Second})
}

func TestGenerate(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "hello", body.Contents[0].Parts[0].Text)
		assert.EqualValues(t, 64, body.GenerationConfig.MaxOutputTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  {\"intent\":\"unknown\"}\n"}]}}]}`))
	}, "test-key")

	text, err := g.Generate(context.Background(), llm.Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"unknown"}`, text)
}

func TestGenerate_MissingKey(t *testing.T) {
	g := New(config.LLMConfig{})
	_, err := g.Generate(context.Background(), llm.Request{Prompt: "x"})
	assert.True(t, fallback.IsSkippable(err))
}

func TestGenerate_Status(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}, "k")
	_, err := g.Generate(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, fallback.StatusCode(err))
}

func TestGenerate_EmptyText(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}, "k")
	_, err := g.Generate(context.Background(), llm.Request{Prompt: "x"})
	assert.ErrorIs(t, err, fallback.ErrMalformed)
}
