package agriapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(config.BackendConfig{
		BaseURL:           ts.URL + "/",
		PricePath:         "/api/price/all/",
		AdvisoryPath:      "/api/advisory/",
		ProcessSpeechPath: "/api/process-speech/",
		TTSPath:           "/api/text-to-speech/",
		Timeout:           5 * time.Second,
	})
}

func TestPriceList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/price/all/", r.URL.Path)
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		_, _ = w.Write([]byte(`{"ok":true,"items":[{"name":"onion","current_price":20,"predicted_price":25}]}`))
	}))

	entries, err := c.PriceList(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name, _ := entries[0].Name()
	assert.Equal(t, "onion", name)
}

func TestPriceList_Status(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	_, err := c.PriceList(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, fallback.StatusCode(err))
}

func TestAdvisory(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/advisory/", r.URL.Path)
		assert.Equal(t, "Varanasi", r.URL.Query().Get("city"))
		assert.Equal(t, "6.5", r.URL.Query().Get("ph"))
		_, _ = w.Write([]byte(`{"city":"Varanasi","inputs":{"ph":6.5},"crop_recommendation":"Wheat (HD-2967)","cold_risk":null}`))
	}))

	rec, err := c.Advisory(context.Background(), "Varanasi", 6.5)
	require.NoError(t, err)
	assert.Equal(t, "Varanasi", rec.City())
	assert.Equal(t, "6.5", rec.PH())
	assert.Equal(t, "Wheat (HD-2967)", rec.Field(FieldCropRecommendation))
	assert.Empty(t, rec.Field(FieldColdRisk))
	assert.Empty(t, rec.Field(FieldIrrigationAdvice))
	assert.Contains(t, rec.Indented(), "\n  \"city\": \"Varanasi\"")
}

func TestAdvisory_NotObject(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2]`))
	}))
	_, err := c.Advisory(context.Background(), "Agra", 7)
	assert.ErrorIs(t, err, fallback.ErrMalformed)
}

func TestProcessSpeech(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pyaz ka bhav", body["spoken_text"])
		assert.Equal(t, "hi-IN", body["language"])
		_, _ = w.Write([]byte(`{"success":true,"chatbot_response":"Onion price is 20/kg."}`))
	}))

	answer, err := c.ProcessSpeech(context.Background(), "pyaz ka bhav", "hi-IN")
	require.NoError(t, err)
	assert.Equal(t, "Onion price is 20/kg.", answer)
}

func TestProcessSpeech_Empty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"could not understand"}`))
	}))
	_, err := c.ProcessSpeech(context.Background(), "x", "en-US")
	require.ErrorIs(t, err, fallback.ErrMalformed)
	assert.Contains(t, err.Error(), "could not understand")
}

func TestTextToSpeech(t *testing.T) {
	audio := []byte("RIFFfakewav")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SpeechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, SpeechRequest{Text: "hello", Language: "en-IN", Voice: "Anushka"}, body)
		_, _ = w.Write([]byte(`{"audio":"` + base64.StdEncoding.EncodeToString(audio) + `"}`))
	}))

	got, err := c.TextToSpeech(context.Background(), SpeechRequest{Text: "hello", Language: "en-IN", Voice: "Anushka"})
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestDecodeAudio(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("abc"))

	got, err := DecodeAudio("svc", []byte(`{"audio_base64":"`+enc+`","audio":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got, err = DecodeAudio("svc", []byte(`{"audio":"data:audio/wav;base64,`+enc+`"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = DecodeAudio("svc", []byte(`{"status":"ok"}`))
	assert.ErrorIs(t, err, fallback.ErrMalformed)

	_, err = DecodeAudio("svc", []byte(`{"audio":"***"}`))
	assert.ErrorIs(t, err, fallback.ErrMalformed)
}
