// Package dispatch runs one utterance through the answer pipeline.
//
// Phases run strictly in order: detecting, understanding, synthesizing,
// an optional backend fallback, then delivering. Every run ends in done or
// failed with exactly one displayed answer. The answer comes from the first
// strategy that succeeds: LLM understanding plus synthesis, then the
// backend's deterministic pipeline, then a fixed apology.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/answer"
	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/history"
	"github.com/nadzzz/agrivoice/internal/langdetect"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/metrics"
	"github.com/nadzzz/agrivoice/internal/sanitize"
	"github.com/nadzzz/agrivoice/internal/tts"
)

// ErrEmptyUtterance is returned for blank input; nothing is displayed.
var ErrEmptyUtterance = eris.New("utterance has no text")

var errUnknownIntent = eris.New("intent not recognized")

// IntentResolver classifies an utterance.
type IntentResolver interface {
	Resolve(ctx context.Context, text string) (message.Intent, error)
}

// AnswerSynthesizer answers a recognized intent.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, lang message.Language, in message.Intent) (message.Answer, error)
}

// Backend is the deterministic speech-understanding endpoint.
type Backend interface {
	ProcessSpeech(ctx context.Context, text, language string) (string, error)
}

// Speaker speaks an answer in a client's speech session.
type Speaker interface {
	Speak(ctx context.Context, client string, req tts.Request) (*tts.Delivery, error)
}

// Components are the collaborators of a Dispatcher. Speaker, History and
// Metrics may be nil.
type Components struct {
	Resolver    IntentResolver
	Synthesizer AnswerSynthesizer
	Backend     Backend
	Speaker     Speaker
	History     *history.Log
	Metrics     *metrics.Metrics
}

// Options are the delivery settings.
type Options struct {
	AutoSpeak bool
	Voice     string
	Rate      float64
}

// Dispatcher is the pipeline orchestrator.
type Dispatcher struct {
	c          Components
	opts       Options
	strategies []fallback.Attempt[*run, message.Answer]
}

// New creates a Dispatcher.
func New(c Components, opts Options) *Dispatcher {
	d := &Dispatcher{c: c, opts: opts}
	d.strategies = []fallback.Attempt[*run, message.Answer]{
		fallback.Func[*run, message.Answer]{Label: string(message.SourceSynthesis), Fn: d.understand},
		fallback.Func[*run, message.Answer]{Label: string(message.SourceBackend), Fn: d.askBackend},
		fallback.Func[*run, message.Answer]{Label: string(message.SourceApology), Fn: apologize},
	}
	return d
}

// run is the state of one pipeline invocation.
type run struct {
	utt    *message.Utterance
	lang   message.Language
	res    *message.Result
	logger *slog.Logger
}

func (r *run) enter(phase message.Phase) {
	r.res.Phase = phase
	r.res.Statuses = append(r.res.Statuses, string(phase))
	r.logger.Debug("pipeline phase", "phase", phase)
}

// Ask processes one utterance. It returns an error only for blank
// input; every other outcome is reported in the Result.
func (d *Dispatcher) Ask(ctx context.Context, utt *message.Utterance) (res *message.Result, err error) {
	if strings.TrimSpace(utt.Text) == "" {
		return nil, ErrEmptyUtterance
	}
	start := time.Now()
	r := &run{
		utt: utt,
		res: &message.Result{
			ID:         utt.ID,
			ClientID:   utt.ClientID,
			Transcript: utt.Text,
			Intent:     message.UnknownIntent(),
		},
		logger: slog.With("request_id", utt.ID, "client_id", utt.ClientID),
	}
	r.logger.Info("pipeline started", "text_length", len(utt.Text), "language_hint", utt.LanguageHint)

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("pipeline panicked", "panic", p)
			d.fail(r, eris.Errorf("internal error: %v", p))
		}
		outcome := string(r.res.Source)
		if r.res.Phase == message.PhaseFailed {
			outcome = "failed"
		}
		if d.c.Metrics != nil {
			d.c.Metrics.PipelineRuns.WithLabelValues(outcome).Inc()
			d.c.Metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		}
		r.logger.Info("pipeline complete", "phase", r.res.Phase, "source", r.res.Source, "duration", time.Since(start))
		res, err = r.res, nil
	}()

	d.display(utt.ClientID, message.RoleUser, utt.Text)

	r.enter(message.PhaseDetecting)
	r.lang = langdetect.Detect(utt.Text).Language()
	r.res.Language = r.lang

	var observe fallback.Observer
	if d.c.Metrics != nil {
		observe = d.c.Metrics.ObserveAnswer(fallback.IsSkippable)
	}
	ans, source, runErr := fallback.Run(ctx, r, observe, d.strategies...)
	if runErr != nil {
		d.fail(r, runErr)
		return r.res, nil
	}
	d.deliver(ctx, r, ans, message.Source(source))
	return r.res, nil
}

func (d *Dispatcher) understand(ctx context.Context, r *run) (message.Answer, error) {
	if d.c.Resolver == nil || d.c.Synthesizer == nil {
		return message.Answer{}, fallback.NotConfigured("understanding")
	}
	r.enter(message.PhaseUnderstanding)
	in, err := d.c.Resolver.Resolve(ctx, r.utt.Text)
	r.res.Intent = in
	if err != nil {
		return message.Answer{}, err
	}
	if in.Kind == message.IntentUnknown {
		return message.Answer{}, errUnknownIntent
	}
	r.logger.Info("intent resolved", "intent", in.Kind, "commodity", in.Commodity, "city", in.City)

	r.enter(message.PhaseSynthesizing)
	return d.c.Synthesizer.Synthesize(ctx, r.utt.Text, r.lang, in)
}

func (d *Dispatcher) askBackend(ctx context.Context, r *run) (message.Answer, error) {
	if d.c.Backend == nil {
		return message.Answer{}, fallback.NotConfigured("backend")
	}
	r.enter(message.PhaseBackendFallback)
	lang := r.utt.LanguageHint
	if lang == "" {
		lang = r.lang.SpeechLocale()
	}
	text, err := d.c.Backend.ProcessSpeech(ctx, r.utt.Text, lang)
	if err != nil {
		return message.Answer{}, err
	}
	if sanitize.Blank(text) {
		return message.Answer{}, fallback.Malformed("backend answer has no text")
	}
	return message.Answer{Text: text, Language: r.lang}, nil
}

func apologize(_ context.Context, r *run) (message.Answer, error) {
	return message.Answer{Text: answer.Apology(r.lang), Language: r.lang}, nil
}

func (d *Dispatcher) deliver(ctx context.Context, r *run, ans message.Answer, source message.Source) {
	r.enter(message.PhaseDelivering)

	// The apology is a fixed sentence pair and is shown as written.
	if source != message.SourceApology {
		ans.Text = sanitize.Sanitize(ans.Text)
	}
	r.res.Answer = ans
	r.res.Source = source
	d.display(r.utt.ClientID, message.RoleAI, ans.Text)

	if d.speakEnabled(r.utt) {
		delivery, err := d.c.Speaker.Speak(ctx, r.utt.ClientID, tts.Request{
			Text:   ans.Text,
			Locale: r.lang.SpeechLocale(),
			Voice:  d.opts.Voice,
			Rate:   d.opts.Rate,
		})
		if err != nil {
			r.logger.Warn("answer not spoken", "error", err)
		} else {
			r.res.Speech = delivery.Speech()
			r.logger.Info("answer spoken", "tier", delivery.Tier, "locale", delivery.Locale)
		}
	}
	r.enter(message.PhaseDone)
}

// fail ends the run with the apology on screen, an error status and no
// audio.
func (d *Dispatcher) fail(r *run, err error) {
	r.logger.Error("pipeline failed", "error", err)
	if r.lang == "" {
		r.lang = langdetect.Detect(r.utt.Text).Language()
		r.res.Language = r.lang
	}
	r.res.Phase = message.PhaseFailed
	r.res.Statuses = append(r.res.Statuses, fmt.Sprintf("error: %v", err))
	r.res.Error = err.Error()
	r.res.Speech = nil
	if r.res.Answer.Text == "" {
		r.res.Answer = message.Answer{Text: answer.Apology(r.lang), Language: r.lang}
		r.res.Source = message.SourceApology
		d.display(r.utt.ClientID, message.RoleAI, r.res.Answer.Text)
	}
}

// ErrSpeechDisabled is returned by Speak when no speech chain is wired.
var ErrSpeechDisabled = eris.New("speech output disabled")

// Speak speaks text in the client's session outside of a pipeline run.
func (d *Dispatcher) Speak(ctx context.Context, sr message.SpeakRequest) (*message.Speech, error) {
	if d.c.Speaker == nil {
		return nil, ErrSpeechDisabled
	}
	if strings.TrimSpace(sr.Text) == "" {
		return nil, ErrEmptyUtterance
	}
	req := tts.Request{
		Text:   sr.Text,
		Locale: message.NormalizeLocale(sr.Language),
		Voice:  sr.Voice,
		Rate:   sr.Rate,
	}
	if sr.Language == "" {
		req.Locale = langdetect.Detect(sr.Text).Language().SpeechLocale()
	}
	if req.Voice == "" {
		req.Voice = d.opts.Voice
	}
	if req.Rate <= 0 {
		req.Rate = d.opts.Rate
	}
	delivery, err := d.c.Speaker.Speak(ctx, sr.ClientID, req)
	if err != nil {
		return nil, err
	}
	return delivery.Speech(), nil
}

// History returns the client's displayed conversation.
func (d *Dispatcher) History(client string) []message.Entry {
	if d.c.History == nil {
		return nil
	}
	return d.c.History.Entries(client)
}

func (d *Dispatcher) speakEnabled(utt *message.Utterance) bool {
	if d.c.Speaker == nil {
		return false
	}
	if utt.AutoSpeak != nil {
		return *utt.AutoSpeak
	}
	return d.opts.AutoSpeak
}

func (d *Dispatcher) display(client string, role message.Role, text string) {
	if d.c.History != nil {
		d.c.History.Append(client, role, text)
	}
}
