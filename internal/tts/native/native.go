// Package native is the last speech tier: a local synthesis engine.
//
// The tier maps the answer locale to hi-IN or en-US, picks the closest
// voice the engine has loaded, and clamps the rate to [0.5, 2]. When the
// engine reports no voices yet it waits for the voice list (bounded by
// the configured wait) and then speaks anyway. Without an engine the tier
// tells the client to use its own synthesizer.
package native

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/nadzzz/agrivoice/internal/tts"
)

// Voice is one engine voice.
type Voice struct {
	Name   string
	Locale string // BCP-47, e.g. "hi-IN"
}

// Engine is a local synthesis engine with a lazily loaded voice list.
type Engine interface {
	// Voices returns the voices loaded so far, possibly none. It may start
	// loading the list in the background.
	Voices() []Voice

	// VoicesChanged is closed once the voice list has been loaded.
	VoicesChanged() <-chan struct{}

	// Synthesize renders text with voice. An empty voice name means the
	// engine default.
	Synthesize(ctx context.Context, text string, voice Voice) (tts.Clip, error)
}

// Tier speaks through an Engine.
type Tier struct {
	engine Engine
	player tts.Player
	wait   time.Duration
}

// New creates the native tier. engine may be nil.
func New(engine Engine, player tts.Player, voiceWait time.Duration) *Tier {
	if voiceWait <= 0 {
		voiceWait = 600 * time.Millisecond
	}
	return &Tier{engine: engine, player: player, wait: voiceWait}
}

// Name returns the tier name.
func (t *Tier) Name() string { return "native" }

// Attempt speaks req with the engine.
func (t *Tier) Attempt(ctx context.Context, req tts.Request) (*tts.Delivery, error) {
	locale := tts.NativeLocale(req.Locale)
	rate := tts.ClampRate(req.Rate)

	if t.engine == nil {
		slog.WarnContext(ctx, "no native speech engine, leaving synthesis to the client", "locale", locale)
		return &tts.Delivery{Tier: t.Name(), Locale: locale, Rate: rate, ClientSynthesis: true}, nil
	}

	voices := t.engine.Voices()
	if len(voices) == 0 {
		timer := time.NewTimer(t.wait)
		select {
		case <-t.engine.VoicesChanged():
		case <-timer.C:
			slog.DebugContext(ctx, "voice list not ready, speaking with the default voice")
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
		timer.Stop()
		voices = t.engine.Voices()
	}

	voice, _ := PickVoice(voices, locale)
	clip, err := t.engine.Synthesize(ctx, req.Text, voice)
	if err != nil {
		return nil, err
	}
	pb, err := t.player.Play(ctx, clip, rate)
	if err != nil {
		return nil, err
	}
	return &tts.Delivery{
		Tier:     t.Name(),
		Locale:   locale,
		Voice:    voice.Name,
		Rate:     rate,
		Clip:     &clip,
		Playback: pb,
	}, nil
}

// PickVoice returns the voice whose locale best matches locale. Voices
// with unparseable locales are ignored. ok is false when nothing matches
// even at the language level.
func PickVoice(voices []Voice, locale string) (Voice, bool) {
	var tags []language.Tag
	var candidates []Voice
	for _, v := range voices {
		tag, err := language.Parse(v.Locale)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		candidates = append(candidates, v)
	}
	if len(tags) == 0 {
		return Voice{Locale: locale}, false
	}
	want, err := language.Parse(locale)
	if err != nil {
		return Voice{Locale: locale}, false
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return Voice{Locale: locale}, false
	}
	return candidates[idx], true
}
