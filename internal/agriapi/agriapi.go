// Package agriapi is the client for the agricultural backend: the price
// list, the advisory service, the deterministic speech-understanding
// endpoint and the text-to-speech proxy.
//
// Every non-2xx status is returned as a *fallback.StatusError and every
// unusable body as fallback.ErrMalformed. Nothing is cached: each call hits
// the backend.
package agriapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/nadzzz/agrivoice/internal/commodity"
	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/fallback"
)

// Client talks to the backend over HTTP.
type Client struct {
	baseURL      string
	pricePath    string
	advisoryPath string
	processPath  string
	ttsPath      string
	client       *http.Client
}

// New creates a backend client from config.
func New(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pricePath:    cfg.PricePath,
		advisoryPath: cfg.AdvisoryPath,
		processPath:  cfg.ProcessSpeechPath,
		ttsPath:      cfg.TTSPath,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) get(ctx context.Context, service, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: creating request", service)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	return c.do(req, service)
}

func (c *Client) post(ctx context.Context, service, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: marshalling request", service)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "%s: creating request", service)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, service)
}

func (c *Client) do(req *http.Request, service string) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: request", service)
	}
	defer resp.Body.Close()

	if err := fallback.CheckResponse(service, resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: reading response", service)
	}
	return data, nil
}

// PriceList fetches a fresh snapshot of the price list.
func (c *Client) PriceList(ctx context.Context) ([]commodity.Entry, error) {
	data, err := c.get(ctx, "price list", c.baseURL+c.pricePath)
	if err != nil {
		return nil, err
	}
	entries, err := commodity.ParseList(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("price list fetched", "entries", len(entries))
	return entries, nil
}

// Advisory fetches the advisory record for a city and soil pH.
func (c *Client) Advisory(ctx context.Context, city string, ph float64) (*AdvisoryRecord, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("ph", strconv.FormatFloat(ph, 'f', -1, 64))

	data, err := c.get(ctx, "advisory", c.baseURL+c.advisoryPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fallback.Malformed("advisory: expected a JSON object")
	}
	return &AdvisoryRecord{raw: string(data)}, nil
}

type processSpeechRequest struct {
	SpokenText string `json:"spoken_text"`
	Language   string `json:"language"`
}

// ProcessSpeech asks the backend's deterministic pipeline to answer text.
// An empty chatbot_response is an error.
func (c *Client) ProcessSpeech(ctx context.Context, text, language string) (string, error) {
	data, err := c.post(ctx, "process speech", c.processPath, processSpeechRequest{SpokenText: text, Language: language})
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(gjson.GetBytes(data, "chatbot_response").String())
	if answer == "" {
		if msg := gjson.GetBytes(data, "error").String(); msg != "" {
			return "", fallback.Malformed("process speech: %s", msg)
		}
		return "", fallback.Malformed("process speech: empty backend response")
	}
	return answer, nil
}

// SpeechRequest is the payload of the TTS proxy and of the direct provider.
type SpeechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
}

// TextToSpeech asks the backend TTS proxy for audio and returns the
// decoded bytes.
func (c *Client) TextToSpeech(ctx context.Context, sr SpeechRequest) ([]byte, error) {
	data, err := c.post(ctx, "tts proxy", c.ttsPath, sr)
	if err != nil {
		return nil, err
	}
	return DecodeAudio("tts proxy", data)
}

// DecodeAudio extracts base64 audio from a TTS response body, reading
// "audio_base64" first and "audio" second.
func DecodeAudio(service string, body []byte) ([]byte, error) {
	b64 := gjson.GetBytes(body, "audio_base64").String()
	if b64 == "" {
		b64 = gjson.GetBytes(body, "audio").String()
	}
	if b64 == "" {
		return nil, fallback.Malformed("%s: no audio payload", service)
	}
	// Some providers return a data URL.
	if i := strings.Index(b64, ";base64,"); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+len(";base64,"):]
	}
	audio, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fallback.Malformed("%s: decoding audio: %v", service, err)
	}
	if len(audio) == 0 {
		return nil, fallback.Malformed("%s: empty audio", service)
	}
	return audio, nil
}
