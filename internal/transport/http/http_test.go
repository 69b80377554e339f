package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/dispatch"
	"github.com/nadzzz/agrivoice/internal/message"
)

type fakeService struct {
	gotUtt   *message.Utterance
	gotSpeak message.SpeakRequest
	askErr   error
	speakErr error
	entries  map[string][]message.Entry
}

func (f *fakeService) Ask(_ context.Context, utt *message.Utterance) (*message.Result, error) {
	f.gotUtt = utt
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &message.Result{
		ID:       utt.ID,
		ClientID: utt.ClientID,
		Answer:   message.Answer{Text: "onion ki keemat 20/kg se 25/kg tak badhegi.", Language: message.LanguageHindi},
		Source:   message.SourceSynthesis,
		Phase:    message.PhaseDone,
	}, nil
}

func (f *fakeService) Speak(_ context.Context, sr message.SpeakRequest) (*message.Speech, error) {
	f.gotSpeak = sr
	if f.speakErr != nil {
		return nil, f.speakErr
	}
	return &message.Speech{Tier: "proxy", Locale: "hi-IN", Rate: 1}, nil
}

func (f *fakeService) History(client string) []message.Entry { return f.entries[client] }

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAsk(t *testing.T) {
	svc := &fakeService{}
	h := New(0, []string{"*"}).Handler(svc)

	rec := do(t, h, http.MethodPost, "/v1/ask", `{"text":"pyaz ka bhav kya hai","language":"hi-IN"}`, map[string]string{"X-Client-Id": "tab-7"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res message.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "tab-7", res.ClientID)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, message.PhaseDone, res.Phase)
	assert.Equal(t, "hi-IN", svc.gotUtt.LanguageHint)
}

func TestAsk_Errors(t *testing.T) {
	h := New(0, nil).Handler(&fakeService{askErr: dispatch.ErrEmptyUtterance})
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/ask", `{"text":""}`, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/ask", `{`, nil).Code)

	h = New(0, nil).Handler(&fakeService{askErr: errors.New("boom")})
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodPost, "/v1/ask", `{"text":"x"}`, nil).Code)
}

func TestSpeak(t *testing.T) {
	svc := &fakeService{}
	h := New(0, nil).Handler(svc)

	rec := do(t, h, http.MethodPost, "/v1/speak", `{"text":"नमस्ते","rate":1.5}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tier":"proxy","locale":"hi-IN","rate":1}`, rec.Body.String())
	assert.Equal(t, "anonymous", svc.gotSpeak.ClientID)
	assert.InDelta(t, 1.5, svc.gotSpeak.Rate, 1e-9)
}

func TestSpeak_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{dispatch.ErrEmptyUtterance, http.StatusBadRequest},
		{dispatch.ErrSpeechDisabled, http.StatusServiceUnavailable},
		{errors.New("fallback: all tiers failed"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		h := New(0, nil).Handler(&fakeService{speakErr: tt.err})
		assert.Equal(t, tt.want, do(t, h, http.MethodPost, "/v1/speak", `{"text":"x"}`, nil).Code, tt.err.Error())
	}
}

func TestHistory(t *testing.T) {
	svc := &fakeService{entries: map[string][]message.Entry{
		"tab-1": {{Role: message.RoleUser, Text: "hello"}},
	}}
	h := New(0, nil).Handler(svc)

	rec := do(t, h, http.MethodGet, "/v1/history/tab-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []message.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)

	rec = do(t, h, http.MethodGet, "/v1/history/nobody", "", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := New(0, []string{"https://kisan.example"}).Handler(&fakeService{})
	req := httptest.NewRequest(http.MethodOptions, "/v1/ask", nil)
	req.Header.Set("Origin", "https://kisan.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://kisan.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
