// Package piper is a native speech engine backed by a Piper server
// speaking the Wyoming protocol.
//
// Piper is a fast, local neural text-to-speech system. The linuxserver/piper
// container exposes the Wyoming protocol on TCP port 10200. Each request
// opens its own connection.
//
// Wyoming event format:
//
//	{"type": "...", "data_length": N, "payload_length": M}\n
//	<data_bytes>      (N bytes of JSON, if N > 0)
//	<payload_bytes>   (M bytes, if M > 0)
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/tts"
	"github.com/nadzzz/agrivoice/internal/tts/native"
)

// Engine implements native.Engine over Wyoming.
type Engine struct {
	endpoint string
	group    singleflight.Group

	mu       sync.Mutex
	voices   []native.Voice
	loaded   chan struct{}
	loadOnce sync.Once
}

// New creates a Piper engine from config. The voice list is loaded on
// first use.
func New(cfg config.PiperConfig) *Engine {
	ep := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	ep = strings.TrimPrefix(ep, "http://")
	return &Engine{endpoint: ep, loaded: make(chan struct{})}
}

// Voices returns the cached voice list. When nothing is cached yet a
// background load is started.
func (e *Engine) Voices() []native.Voice {
	e.mu.Lock()
	v := e.voices
	e.mu.Unlock()
	if v == nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := e.LoadVoices(ctx); err != nil {
				slog.Warn("piper voice list unavailable", "endpoint", e.endpoint, "error", err)
			}
		}()
	}
	return v
}

// VoicesChanged is closed after the first successful voice list load.
func (e *Engine) VoicesChanged() <-chan struct{} { return e.loaded }

// LoadVoices asks the server for its voices. Concurrent calls share one
// request.
func (e *Engine) LoadVoices(ctx context.Context) ([]native.Voice, error) {
	v, err, _ := e.group.Do("voices", func() (any, error) {
		voices, err := e.describe(ctx)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.voices = voices
		e.mu.Unlock()
		e.loadOnce.Do(func() { close(e.loaded) })
		slog.Debug("piper voices loaded", "count", len(voices))
		return voices, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]native.Voice), nil
}

func (e *Engine) describe(ctx context.Context) ([]native.Voice, error) {
	conn, r, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := writeEvent(conn, event{Type: "describe"}, nil); err != nil {
		return nil, eris.Wrap(err, "sending describe event")
	}
	for {
		evt, _, err := readEvent(r)
		if err != nil {
			return nil, eris.Wrap(err, "reading piper event")
		}
		if evt.Type != "info" {
			continue
		}
		return parseVoices(evt.Data), nil
	}
}

// parseVoices flattens the tts programs of an info event.
func parseVoices(data json.RawMessage) []native.Voice {
	voices := []native.Voice{}
	gjson.GetBytes(data, "tts").ForEach(func(_, program gjson.Result) bool {
		program.Get("voices").ForEach(func(_, v gjson.Result) bool {
			name := v.Get("name").String()
			if name == "" {
				return true
			}
			voices = append(voices, native.Voice{
				Name:   name,
				Locale: message.NormalizeLocale(v.Get("languages.0").String()),
			})
			return true
		})
		return true
	})
	return voices
}

// Synthesize sends text to the Piper server and returns the audio as WAV.
func (e *Engine) Synthesize(ctx context.Context, text string, voice native.Voice) (tts.Clip, error) {
	if text == "" {
		return tts.Clip{}, eris.New("empty text for synthesis")
	}
	slog.Debug("piper synthesize", "text_length", len(text), "voice", voice.Name, "endpoint", e.endpoint)

	conn, r, err := e.dial(ctx)
	if err != nil {
		return tts.Clip{}, err
	}
	defer conn.Close()

	data := map[string]any{"text": text}
	if voice.Name != "" {
		data["voice"] = map[string]any{"name": voice.Name}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return tts.Clip{}, eris.Wrap(err, "marshalling synthesize data")
	}
	if err := writeEvent(conn, event{Type: "synthesize", Data: raw}, nil); err != nil {
		return tts.Clip{}, eris.Wrap(err, "sending synthesize event")
	}

	// audio-start → audio-chunk* → audio-stop
	var (
		pcm        bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)
	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return tts.Clip{}, eris.Wrap(err, "reading piper event")
		}
		switch evt.Type {
		case "audio-start":
			if v := gjson.GetBytes(evt.Data, "rate"); v.Exists() {
				sampleRate = int(v.Int())
			}
			if v := gjson.GetBytes(evt.Data, "channels"); v.Exists() {
				channels = int(v.Int())
			}
			if v := gjson.GetBytes(evt.Data, "width"); v.Exists() {
				width = int(v.Int())
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			if pcm.Len() == 0 {
				return tts.Clip{}, eris.New("piper returned no audio")
			}
			return tts.Clip{
				Audio:       pcmToWAV(pcm.Bytes(), sampleRate, channels, width),
				ContentType: "audio/wav",
			}, nil
		case "error":
			msg := gjson.GetBytes(evt.Data, "text").String()
			if msg == "" {
				msg = "unknown error"
			}
			return tts.Clip{}, eris.Errorf("piper error: %s", msg)
		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

func (e *Engine) dial(ctx context.Context) (net.Conn, *bufio.Reader, error) {
	if e.endpoint == "" {
		return nil, nil, eris.New("no piper endpoint configured")
	}
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", e.endpoint)
	if err != nil {
		return nil, nil, eris.Wrap(err, "connecting to piper")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}
	return conn, bufio.NewReader(conn), nil
}

// --- Wyoming protocol helpers ---

type event struct {
	Type string
	Data json.RawMessage
}

type header struct {
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	DataLength    int             `json:"data_length,omitempty"`
	PayloadLength int             `json:"payload_length,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	h := header{Type: evt.Type, DataLength: len(evt.Data), PayloadLength: len(payload)}
	line, err := json.Marshal(h)
	if err != nil {
		return eris.Wrap(err, "marshalling header")
	}
	line = append(line, '\n')
	if _, err := w.Write(line); err != nil {
		return err
	}
	if len(evt.Data) > 0 {
		if _, err := w.Write(evt.Data); err != nil {
			return err
		}
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func readEvent(r *bufio.Reader) (*event, []byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, nil, eris.Wrap(err, "reading header")
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, nil, eris.Wrapf(err, "invalid wyoming header %q", bytes.TrimSpace(line))
	}

	evt := &event{Type: h.Type, Data: h.Data}
	if h.DataLength > 0 {
		data := make([]byte, h.DataLength)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, nil, eris.Wrap(err, "reading data")
		}
		evt.Data = data
	}

	var payload []byte
	if h.PayloadLength > 0 {
		payload = make([]byte, h.PayloadLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, eris.Wrap(err, "reading payload")
		}
	}
	return evt, payload, nil
}

// pcmToWAV wraps raw PCM data in a 44-byte WAV header.
func pcmToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(44 + len(pcm))

	le := func(v any) { _ = binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	le(uint32(36 + len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(channels))
	le(uint32(sampleRate))
	le(uint32(sampleRate * channels * bytesPerSample))
	le(uint16(channels * bytesPerSample))
	le(uint16(bytesPerSample * 8))

	buf.WriteString("data")
	le(uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
