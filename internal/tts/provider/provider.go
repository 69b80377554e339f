// Package provider is the direct speech tier: it calls the paid TTS
// provider without going through the backend.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nadzzz/agrivoice/internal/agriapi"
	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/tts"
)

const service = "direct tts"

// Synthesizer calls the provider endpoint.
type Synthesizer struct {
	enabled    bool
	endpoint   string
	credential string
	client     *http.Client
	limiter    *rate.Limiter
}

// New creates the direct-provider synthesizer. It only attempts a call
// when direct mode is enabled and both endpoint and credential are set.
func New(cfg config.SpeechConfig, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Synthesizer{
		enabled:    cfg.DirectEnabled,
		endpoint:   cfg.Endpoint,
		credential: cfg.Credential,
		client:     &http.Client{Timeout: timeout},
	}
	if cfg.DirectRateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.DirectRateLimit), 1)
	}
	return s
}

// Name returns the tier name.
func (s *Synthesizer) Name() string { return "direct" }

type payload struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
	Model    string `json:"model"`
}

// Synthesize requests audio from the provider.
func (s *Synthesizer) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	switch {
	case !s.enabled:
		return tts.Clip{}, fallback.NotConfigured("%s: direct mode disabled", service)
	case s.endpoint == "" || s.credential == "":
		return tts.Clip{}, fallback.NotConfigured("%s: endpoint or credential missing", service)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return tts.Clip{}, eris.Errorf("%s: rate limit reached", service)
	}

	body, err := json.Marshal(payload{Text: req.Text, Language: req.Locale, Voice: req.Voice, Model: req.Voice})
	if err != nil {
		return tts.Clip{}, eris.Wrap(err, "marshalling direct tts request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return tts.Clip{}, eris.Wrap(err, "creating direct tts request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Providers disagree on the auth header; send all the common ones.
	httpReq.Header.Set("Authorization", "Bearer "+s.credential)
	httpReq.Header.Set("x-api-key", s.credential)
	httpReq.Header.Set("api-subscription-key", s.credential)

	slog.Debug("direct tts request", "locale", req.Locale, "voice", req.Voice, "text_length", len(req.Text))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return tts.Clip{}, eris.Wrap(err, "direct tts request")
	}
	defer resp.Body.Close()
	if err := fallback.CheckResponse(service, resp); err != nil {
		return tts.Clip{}, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tts.Clip{}, eris.Wrap(err, "reading direct tts response")
	}
	audio, err := agriapi.DecodeAudio(service, data)
	if err != nil {
		return tts.Clip{}, err
	}
	return tts.Clip{Audio: audio, ContentType: http.DetectContentType(audio)}, nil
}
