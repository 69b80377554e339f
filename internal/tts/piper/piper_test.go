package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/tts/native"
)

const infoData = `{"tts":[{"name":"piper","voices":[` +
	`{"name":"en_US-lessac-medium","languages":["en_US"]},` +
	`{"name":"hi_IN-pratham-medium","languages":["hi_IN"]}]}]}`

// fakeServer answers describe with infoData and synthesize with two PCM
// chunks. It records the last synthesize data it received.
type fakeServer struct {
	ln        net.Listener
	describes atomic.Int32
	lastSynth atomic.Value
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	evt, _, err := readEvent(r)
	if err != nil {
		return
	}
	switch evt.Type {
	case "describe":
		s.describes.Add(1)
		_ = writeEvent(conn, event{Type: "info", Data: []byte(infoData)}, nil)
	case "synthesize":
		s.lastSynth.Store(string(evt.Data))
		_ = writeEvent(conn, event{Type: "audio-start", Data: []byte(`{"rate":16000,"width":2,"channels":1}`)}, nil)
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{1, 2})
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{3, 4})
		_ = writeEvent(conn, event{Type: "audio-stop"}, nil)
	}
}

func TestLoadVoices(t *testing.T) {
	srv := startFakeServer(t)
	e := New(config.PiperConfig{Endpoint: "tcp://" + srv.ln.Addr().String()})

	voices, err := e.LoadVoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []native.Voice{
		{Name: "en_US-lessac-medium", Locale: "en-US"},
		{Name: "hi_IN-pratham-medium", Locale: "hi-IN"},
	}, voices)

	select {
	case <-e.VoicesChanged():
	default:
		t.Fatal("voices changed not signalled")
	}
	assert.Len(t, e.Voices(), 2)
}

func TestVoices_BackgroundLoad(t *testing.T) {
	srv := startFakeServer(t)
	e := New(config.PiperConfig{Endpoint: srv.ln.Addr().String()})

	assert.Empty(t, e.Voices())
	select {
	case <-e.VoicesChanged():
	case <-time.After(5 * time.Second):
		t.Fatal("background load did not finish")
	}
	assert.Len(t, e.Voices(), 2)
	assert.GreaterOrEqual(t, srv.describes.Load(), int32(1))
}

func TestSynthesize(t *testing.T) {
	srv := startFakeServer(t)
	e := New(config.PiperConfig{Endpoint: srv.ln.Addr().String()})

	clip, err := e.Synthesize(context.Background(), "नमस्ते", native.Voice{Name: "hi_IN-pratham-medium"})
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", clip.ContentType)
	require.Len(t, clip.Audio, 48)
	assert.Equal(t, "RIFF", string(clip.Audio[:4]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(clip.Audio[24:28]))
	assert.Equal(t, []byte{1, 2, 3, 4}, clip.Audio[44:])
	assert.JSONEq(t, `{"text":"नमस्ते","voice":{"name":"hi_IN-pratham-medium"}}`, srv.lastSynth.Load().(string))
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	srv := startFakeServer(t)
	e := New(config.PiperConfig{Endpoint: srv.ln.Addr().String()})

	_, err := e.Synthesize(context.Background(), "hello", native.Voice{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hello"}`, srv.lastSynth.Load().(string))
}

func TestSynthesize_Errors(t *testing.T) {
	_, err := New(config.PiperConfig{}).Synthesize(context.Background(), "x", native.Voice{})
	require.Error(t, err)

	_, err = New(config.PiperConfig{Endpoint: "127.0.0.1:1"}).Synthesize(context.Background(), "", native.Voice{})
	require.Error(t, err)
}

func TestEventRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, event{Type: "audio-chunk", Data: []byte(`{"rate":22050}`)}, []byte{9, 9, 9}))

	evt, payload, err := readEvent(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "audio-chunk", evt.Type)
	assert.JSONEq(t, `{"rate":22050}`, string(evt.Data))
	assert.Equal(t, []byte{9, 9, 9}, payload)
}

func TestReadEvent_InlineData(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString(`{"type":"error","data":{"text":"no voice"}}` + "\n"))
	evt, _, err := readEvent(r)
	require.NoError(t, err)
	assert.Equal(t, "error", evt.Type)
	assert.JSONEq(t, `{"text":"no voice"}`, string(evt.Data))
}

func TestReadEvent_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty stream", "", "reading header"},
		{"bad header", "not json\n", `invalid wyoming header "not json"`},
		{"short data", `{"type":"info","data_length":10}` + "\n{}", "reading data"},
		{"short payload", `{"type":"audio-chunk","payload_length":4}` + "\n\x01", "reading payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := readEvent(bufio.NewReader(bytes.NewBufferString(tt.input)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
