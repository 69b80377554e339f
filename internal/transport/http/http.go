// Package http implements the HTTP transport for agrivoice.
//
// This transport exposes a small REST API for asking questions, speaking
// sentences and reading the conversation log. It is what the browser
// client talks to.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/agrivoice/internal/dispatch"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/transport"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port    int
	origins []string
	server  *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int, allowedOrigins []string) *Transport {
	return &Transport{port: port, origins: allowedOrigins}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routes served for svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: t.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Client-Id"},
		MaxAge:         300,
	}))

	h := &handlers{svc: svc}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", h.ask)
		r.Post("/speak", h.speak)
		r.Get("/history/{client}", h.history)
	})

	// Swagger UI serves the registered OpenAPI document.
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return r
}

// Listen starts the HTTP server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return eris.Wrap(err, "http listen")
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

type handlers struct {
	svc transport.Service
}

// errorBody is returned for every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	return dec.Decode(v)
}

// ask runs one utterance through the pipeline.
//
// @Summary     Ask a question
// @Description Runs the transcript through language detection, intent resolution and answer synthesis,
// @Description falling back to the backend pipeline and finally to a fixed apology. The answer is
// @Description spoken in the client's speech session when auto-speak is on.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       utterance    body    message.Utterance  true   "Transcript and client id"
// @Param       X-Client-Id  header  string             false  "Client id when the body has none"
// @Success     200  {object}  message.Result
// @Failure     400  {object}  errorBody
// @Router      /v1/ask [post]
func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	var utt message.Utterance
	if err := decode(r, &utt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if utt.ClientID == "" {
		utt.ClientID = r.Header.Get("X-Client-Id")
	}
	transport.Prepare(&utt)

	res, err := h.svc.Ask(r.Context(), &utt)
	if err != nil {
		if errors.Is(err, dispatch.ErrEmptyUtterance) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("ask failed", "request_id", utt.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// speak speaks a sentence in the client's speech session.
//
// @Summary     Speak a sentence
// @Description Tries the direct provider, then the backend proxy, then the native engine. When no
// @Description server tier produced audio the response asks the client to synthesize locally.
// @Tags        speech
// @Accept      json
// @Produce     json
// @Param       request  body  message.SpeakRequest  true  "Text, locale, voice and rate"
// @Success     200  {object}  message.Speech
// @Failure     400  {object}  errorBody
// @Failure     502  {object}  errorBody
// @Failure     503  {object}  errorBody
// @Router      /v1/speak [post]
func (h *handlers) speak(w http.ResponseWriter, r *http.Request) {
	var sr message.SpeakRequest
	if err := decode(r, &sr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if sr.ClientID == "" {
		sr.ClientID = r.Header.Get("X-Client-Id")
	}
	if sr.ClientID == "" {
		sr.ClientID = transport.AnonymousClient
	}

	speech, err := h.svc.Speak(r.Context(), sr)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, speech)
	case errors.Is(err, dispatch.ErrEmptyUtterance):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrSpeechDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Warn("speak failed", "client_id", sr.ClientID, "error", err)
		writeError(w, http.StatusBadGateway, "no speech tier succeeded")
	}
}

// history returns the conversation log of one client.
//
// @Summary     Conversation log
// @Tags        pipeline
// @Produce     json
// @Param       client  path  string  true  "Client id"
// @Success     200  {array}  message.Entry
// @Router      /v1/history/{client} [get]
func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.History(chi.URLParam(r, "client"))
	if entries == nil {
		entries = []message.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
