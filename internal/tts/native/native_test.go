package native

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/tts"
)

type fakeEngine struct {
	mu      sync.Mutex
	voices  []Voice
	changed chan struct{}
	used    Voice
	err     error
}

func (f *fakeEngine) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voices
}

func (f *fakeEngine) VoicesChanged() <-chan struct{} { return f.changed }

func (f *fakeEngine) load(v []Voice) {
	f.mu.Lock()
	f.voices = v
	f.mu.Unlock()
	close(f.changed)
}

func (f *fakeEngine) Synthesize(_ context.Context, _ string, v Voice) (tts.Clip, error) {
	f.used = v
	return tts.Clip{Audio: []byte("RIFF")}, f.err
}

type donePlayback struct{ done chan struct{} }

func (donePlayback) Stop()                    {}
func (p donePlayback) Done() <-chan struct{} { return p.done }

type fakePlayer struct{ rate float64 }

func (f *fakePlayer) Play(_ context.Context, _ tts.Clip, rate float64) (tts.Playback, error) {
	f.rate = rate
	return donePlayback{done: make(chan struct{})}, nil
}

var voices = []Voice{
	{Name: "en_US-lessac-medium", Locale: "en-US"},
	{Name: "hi_IN-pratham-medium", Locale: "hi-IN"},
	{Name: "broken", Locale: "!!"},
}

func TestPickVoice(t *testing.T) {
	v, ok := PickVoice(voices, "hi-IN")
	require.True(t, ok)
	assert.Equal(t, "hi_IN-pratham-medium", v.Name)

	v, ok = PickVoice(voices, "en-US")
	require.True(t, ok)
	assert.Equal(t, "en_US-lessac-medium", v.Name)

	_, ok = PickVoice(nil, "hi-IN")
	assert.False(t, ok)
}

func TestAttempt_HindiVoiceAndClamp(t *testing.T) {
	eng := &fakeEngine{voices: voices, changed: make(chan struct{})}
	player := &fakePlayer{}
	tier := New(eng, player, 0)

	d, err := tier.Attempt(context.Background(), tts.Request{Text: "नमस्ते।", Locale: "hi-IN", Rate: 3})
	require.NoError(t, err)
	assert.Equal(t, "hi-IN", d.Locale)
	assert.Equal(t, "hi_IN-pratham-medium", d.Voice)
	assert.InDelta(t, 2.0, player.rate, 1e-9)
	assert.Equal(t, "native", d.Tier)
}

func TestAttempt_EnglishIndiaMapsToUS(t *testing.T) {
	eng := &fakeEngine{voices: voices, changed: make(chan struct{})}
	d, err := New(eng, &fakePlayer{}, 0).Attempt(context.Background(), tts.Request{Text: "Hi.", Locale: "en-IN"})
	require.NoError(t, err)
	assert.Equal(t, "en-US", d.Locale)
	assert.Equal(t, "en_US-lessac-medium", eng.used.Name)
}

func TestAttempt_WaitsForVoices(t *testing.T) {
	eng := &fakeEngine{changed: make(chan struct{})}
	go func() {
		time.Sleep(20 * time.Millisecond)
		eng.load(voices)
	}()

	d, err := New(eng, &fakePlayer{}, 5*time.Second).Attempt(context.Background(), tts.Request{Text: "x.", Locale: "hi-IN"})
	require.NoError(t, err)
	assert.Equal(t, "hi_IN-pratham-medium", d.Voice)
}

func TestAttempt_SpeaksAnywayAfterTimeout(t *testing.T) {
	eng := &fakeEngine{changed: make(chan struct{})}
	start := time.Now()
	d, err := New(eng, &fakePlayer{}, 30*time.Millisecond).Attempt(context.Background(), tts.Request{Text: "x.", Locale: "en-IN"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Empty(t, d.Voice)
	assert.Equal(t, "en-US", eng.used.Locale)
}

func TestAttempt_NoEngine(t *testing.T) {
	d, err := New(nil, &fakePlayer{}, 0).Attempt(context.Background(), tts.Request{Text: "x.", Locale: "hi-IN", Rate: 0.2})
	require.NoError(t, err)
	assert.True(t, d.ClientSynthesis)
	assert.Nil(t, d.Clip)
	assert.InDelta(t, 0.5, d.Rate, 1e-9)
	assert.True(t, d.Speech().ClientSynthesis)
}

func TestAttempt_EngineError(t *testing.T) {
	eng := &fakeEngine{voices: voices, changed: make(chan struct{}), err: errors.New("engine down")}
	_, err := New(eng, &fakePlayer{}, 0).Attempt(context.Background(), tts.Request{Text: "x."})
	require.Error(t, err)
}
