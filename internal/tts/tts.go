// Package tts is the speech output chain.
//
// A Chain owns one client's speech session and tries its tiers in order
// (direct provider, backend proxy, native engine) until one of them starts
// audio. Before any tier is attempted the previous session is torn down,
// so at most one stream is audible per Chain. Sessions keeps one Chain per
// client instance.
package tts

import (
	"context"
	"strings"

	"github.com/nadzzz/agrivoice/internal/message"
)

// Request is one speak call.
type Request struct {
	// Text is the sentence to speak.
	Text string

	// Locale is the answer locale, e.g. "hi-IN" or "en-IN".
	Locale string

	// Voice is the provider voice identity (e.g. "Anushka").
	Voice string

	// Rate is the user speed multiplier. Values <= 0 mean normal speed.
	Rate float64
}

// PlaybackRate is the rate applied by the audio tiers.
func (r Request) PlaybackRate() float64 {
	if r.Rate > 0 {
		return r.Rate
	}
	return 1
}

// Clip is synthesized audio ready for playback.
type Clip struct {
	Audio       []byte
	ContentType string
}

// Playback is a started audio stream.
type Playback interface {
	// Stop pauses the stream and rewinds it. It is safe to call more than
	// once and after the stream has finished.
	Stop()

	// Done is closed when the stream ends, naturally or by Stop.
	Done() <-chan struct{}
}

// Player starts audio streams. Play returns an error when playback is
// rejected, which moves the chain to the next tier.
type Player interface {
	Play(ctx context.Context, clip Clip, rate float64) (Playback, error)
}

// Delivery describes how a speak call was served.
type Delivery struct {
	Tier   string
	Locale string
	Voice  string
	Rate   float64

	// Clip is the audio produced server-side; nil when ClientSynthesis.
	Clip *Clip

	// ClientSynthesis is set when no server tier produced audio and the
	// client is expected to speak the text with its own engine.
	ClientSynthesis bool

	// Playback is the started stream, if any.
	Playback Playback
}

// Speech converts the delivery into the wire form returned to clients.
func (d *Delivery) Speech() *message.Speech {
	if d == nil {
		return nil
	}
	s := &message.Speech{
		Tier:            d.Tier,
		Locale:          d.Locale,
		Voice:           d.Voice,
		Rate:            d.Rate,
		ClientSynthesis: d.ClientSynthesis,
	}
	if d.Clip != nil {
		s.SetAudioBytes(d.Clip.Audio)
		s.ContentType = d.Clip.ContentType
	}
	return s
}

// Synthesizer produces audio for a request. Audio tiers are built from one.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (Clip, error)
}

// AudioTier synthesizes a clip and plays it at the request's playback rate.
type AudioTier struct {
	synth  Synthesizer
	player Player
}

// NewAudioTier pairs a synthesizer with a player.
func NewAudioTier(synth Synthesizer, player Player) *AudioTier {
	return &AudioTier{synth: synth, player: player}
}

// Name returns the synthesizer's tier name.
func (t *AudioTier) Name() string { return t.synth.Name() }

// Attempt synthesizes then plays. Either failure falls through.
func (t *AudioTier) Attempt(ctx context.Context, req Request) (*Delivery, error) {
	clip, err := t.synth.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	rate := req.PlaybackRate()
	pb, err := t.player.Play(ctx, clip, rate)
	if err != nil {
		return nil, err
	}
	return &Delivery{
		Tier:     t.synth.Name(),
		Locale:   req.Locale,
		Voice:    req.Voice,
		Rate:     rate,
		Clip:     &clip,
		Playback: pb,
	}, nil
}

// NativeLocale maps an answer locale to the locale the native engine
// speaks: any Hindi locale becomes hi-IN, everything else en-US.
func NativeLocale(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "hi") {
		return "hi-IN"
	}
	return "en-US"
}

// ClampRate bounds a native speaking rate to [0.5, 2].
func ClampRate(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1
	case rate < 0.5:
		return 0.5
	case rate > 2:
		return 2
	}
	return rate
}
