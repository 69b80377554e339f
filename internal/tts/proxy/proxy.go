// Package proxy is the backend speech tier.
package proxy

import (
	"context"
	"net/http"

	"github.com/nadzzz/agrivoice/internal/agriapi"
	"github.com/nadzzz/agrivoice/internal/tts"
)

// Backend is the slice of the agricultural backend this tier needs.
type Backend interface {
	TextToSpeech(ctx context.Context, sr agriapi.SpeechRequest) ([]byte, error)
}

// Synthesizer asks the backend TTS endpoint for audio.
type Synthesizer struct {
	backend Backend
}

// New creates the proxy synthesizer.
func New(backend Backend) *Synthesizer {
	return &Synthesizer{backend: backend}
}

// Name returns the tier name.
func (s *Synthesizer) Name() string { return "proxy" }

// Synthesize forwards text, locale and voice to the backend.
func (s *Synthesizer) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	audio, err := s.backend.TextToSpeech(ctx, agriapi.SpeechRequest{
		Text:     req.Text,
		Language: req.Locale,
		Voice:    req.Voice,
	})
	if err != nil {
		return tts.Clip{}, err
	}
	return tts.Clip{Audio: audio, ContentType: http.DetectContentType(audio)}, nil
}
