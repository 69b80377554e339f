// Package metrics holds the Prometheus collectors for the pipeline and
// the speech chain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups every collector the daemon exports.
type Metrics struct {
	Registry *prometheus.Registry

	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	SpeechAttempts   *prometheus.CounterVec
	AnswerAttempts   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrivoice_pipeline_runs_total",
			Help: "Pipeline runs by terminal outcome (synthesis, backend, apology, failed).",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agrivoice_pipeline_duration_seconds",
			Help:    "Time from receiving an utterance to delivering its answer.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		SpeechAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrivoice_speech_attempts_total",
			Help: "Speech tier attempts by tier and result.",
		}, []string{"tier", "result"}),
		AnswerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrivoice_answer_attempts_total",
			Help: "Answer strategy attempts by strategy and result.",
		}, []string{"strategy", "result"}),
	}
	m.Registry.MustRegister(
		m.PipelineRuns,
		m.PipelineDuration,
		m.SpeechAttempts,
		m.AnswerAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// result labels an attempt error.
func result(err error, skipped bool) string {
	switch {
	case err == nil:
		return "ok"
	case skipped:
		return "skipped"
	}
	return "error"
}

// ObserveSpeech returns an observer for the speech chain. skippable tells
// configuration skips apart from failures.
func (m *Metrics) ObserveSpeech(skippable func(error) bool) func(string, error) {
	return func(tier string, err error) {
		m.SpeechAttempts.WithLabelValues(tier, result(err, err != nil && skippable(err))).Inc()
	}
}

// ObserveAnswer returns an observer for the answer strategies.
func (m *Metrics) ObserveAnswer(skippable func(error) bool) func(string, error) {
	return func(strategy string, err error) {
		m.AnswerAttempts.WithLabelValues(strategy, result(err, err != nil && skippable(err))).Inc()
	}
}
