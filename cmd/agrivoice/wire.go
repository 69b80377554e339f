package main

import (
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/agriapi"
	"github.com/nadzzz/agrivoice/internal/answer"
	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/dispatch"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/history"
	"github.com/nadzzz/agrivoice/internal/interpreter"
	"github.com/nadzzz/agrivoice/internal/llm"
	"github.com/nadzzz/agrivoice/internal/llm/anthropic"
	"github.com/nadzzz/agrivoice/internal/llm/gemini"
	"github.com/nadzzz/agrivoice/internal/llm/local"
	"github.com/nadzzz/agrivoice/internal/llm/openai"
	"github.com/nadzzz/agrivoice/internal/metrics"
	"github.com/nadzzz/agrivoice/internal/tts"
	"github.com/nadzzz/agrivoice/internal/tts/native"
	"github.com/nadzzz/agrivoice/internal/tts/piper"
	"github.com/nadzzz/agrivoice/internal/tts/provider"
	"github.com/nadzzz/agrivoice/internal/tts/proxy"
)

// app is the wired pipeline.
type app struct {
	dispatcher *dispatch.Dispatcher
	sessions   *tts.Sessions
	metrics    *metrics.Metrics
	gen        llm.Generator
}

func (a *app) Close() {
	a.sessions.StopAll()
	if err := a.gen.Close(); err != nil {
		slog.Warn("llm close failed", "error", err)
	}
}

// newGenerator selects the text-generation backend.
func newGenerator(cfg config.LLMConfig) (llm.Generator, error) {
	switch cfg.Backend {
	case "gemini":
		return gemini.New(cfg), nil
	case "anthropic":
		return anthropic.New(cfg), nil
	case "openai":
		return openai.New(cfg), nil
	case "local":
		return local.New(cfg), nil
	}
	return nil, eris.Errorf("unknown llm backend %q", cfg.Backend)
}

// newEngine returns the native synthesis engine, or nil when the client
// synthesizes itself.
func newEngine(cfg config.NativeConfig) native.Engine {
	if cfg.Backend == "piper" {
		return piper.New(cfg.Piper)
	}
	return nil
}

// build wires the pipeline. player plays server-side audio: the relay
// player for network transports, a local process for the CLI.
func build(cfg *config.Config, player tts.Player) (*app, error) {
	gen, err := newGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	slog.Info("using llm backend", "backend", gen.Name(), "model", cfg.LLM.Model)

	backend := agriapi.New(cfg.Backend)
	m := metrics.New()

	direct := tts.NewAudioTier(provider.New(cfg.Speech, cfg.Backend.Timeout), player)
	proxied := tts.NewAudioTier(proxy.New(backend), player)
	nativeTier := native.New(newEngine(cfg.Speech.Native), player, cfg.Speech.VoiceWait)
	observe := fallback.Observer(m.ObserveSpeech(fallback.IsSkippable))
	sessions := tts.NewSessions(cfg.Speech.MaxSessions, func() *tts.Chain {
		return tts.NewChain(observe, direct, proxied, nativeTier)
	})

	d := dispatch.New(dispatch.Components{
		Resolver: interpreter.New(gen, cfg.LLM.Model),
		Synthesizer: answer.New(backend, backend, gen, answer.Options{
			Model:       cfg.LLM.Model,
			DefaultCity: cfg.Advisory.DefaultCity,
			DefaultPH:   cfg.Advisory.DefaultPH,
		}),
		Backend: backend,
		Speaker: sessions,
		History: history.New(cfg.History.PerClient, cfg.History.MaxClients),
		Metrics: m,
	}, dispatch.Options{
		AutoSpeak: cfg.Speech.AutoSpeak,
		Voice:     cfg.Speech.DefaultVoice,
		Rate:      cfg.Speech.RateMultiplier,
	})

	return &app{dispatcher: d, sessions: sessions, metrics: m, gen: gen}, nil
}
