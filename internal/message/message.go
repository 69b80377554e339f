// Package message defines the core data types flowing through the agrivoice pipeline.
package message

import (
	"encoding/base64"
	"strings"
	"time"
)

// Language is the answer language chosen for a request.
type Language string

const (
	// LanguageHindi answers in Hindi (Devanagari) or Hinglish templates.
	LanguageHindi Language = "hi"

	// LanguageEnglish answers in English.
	LanguageEnglish Language = "en"
)

// SpeechLocale returns the locale the speech chain is asked to speak in.
func (l Language) SpeechLocale() string {
	if l == LanguageHindi {
		return "hi-IN"
	}
	return "en-IN"
}

// Utterance is one user turn, produced by a transport and consumed once by
// the dispatcher.
type Utterance struct {
	// ID is a unique identifier for this request (UUID).
	ID string `json:"id"`

	// ClientID identifies the client instance (browser tab, device, CLI).
	// Speech sessions and conversation history are keyed by it.
	ClientID string `json:"client_id"`

	// Text is the transcript, spoken or typed.
	Text string `json:"text"`

	// LanguageHint is the locale reported by the client's recognizer
	// (e.g. "hi-IN", "en-US"). It is forwarded to the backend fallback as-is.
	LanguageHint string `json:"language,omitempty"`

	// AutoSpeak overrides the configured auto-speak setting when non-nil.
	AutoSpeak *bool `json:"auto_speak,omitempty"`

	// Timestamp is when the utterance was received.
	Timestamp time.Time `json:"timestamp"`
}

// IntentKind is the classified purpose of an utterance.
type IntentKind string

const (
	IntentCommodityTrend     IntentKind = "commodity_trend"
	IntentAdvisorySeed       IntentKind = "advisory_seed"
	IntentAdvisoryIrrigation IntentKind = "advisory_irrigation"
	IntentAdvisoryCold       IntentKind = "advisory_cold"
	IntentUnknown            IntentKind = "unknown"
)

// IsAdvisory reports whether the kind is one of the three advisory sub-intents.
func (k IntentKind) IsAdvisory() bool {
	switch k {
	case IntentAdvisorySeed, IntentAdvisoryIrrigation, IntentAdvisoryCold:
		return true
	}
	return false
}

// Intent is the typed result of intent resolution for one request.
type Intent struct {
	Kind      IntentKind `json:"kind"`
	Commodity string     `json:"commodity,omitempty"`
	City      string     `json:"city,omitempty"`
	PH        *float64   `json:"ph,omitempty"`
}

// UnknownIntent is returned whenever resolution cannot produce a usable record.
func UnknownIntent() Intent {
	return Intent{Kind: IntentUnknown}
}

// Answer is the final natural-language output of a request.
type Answer struct {
	// Text is exactly one terminated sentence.
	Text     string   `json:"text"`
	Language Language `json:"language"`
}

// Phase is a state of the per-request pipeline state machine.
type Phase string

const (
	PhaseDetecting       Phase = "detecting"
	PhaseUnderstanding   Phase = "understanding"
	PhaseSynthesizing    Phase = "synthesizing"
	PhaseBackendFallback Phase = "backend_fallback"
	PhaseDelivering      Phase = "delivering"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// Terminal reports whether the phase ends a request.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Role identifies who authored a displayed conversation entry.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Entry is one displayed chat bubble.
type Entry struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Source names the stage that produced the final answer.
type Source string

const (
	SourceSynthesis Source = "synthesis"
	SourceBackend   Source = "backend"
	SourceApology   Source = "apology"
)

// Speech describes the audio delivered for an answer, if any.
type Speech struct {
	// Tier is the speech tier that ultimately handled the request
	// ("direct", "proxy", "native").
	Tier string `json:"tier"`

	// Locale is the locale that was spoken (e.g. "hi-IN").
	Locale string `json:"locale"`

	// Voice is the provider voice or native voice name used.
	Voice string `json:"voice,omitempty"`

	// Rate is the playback rate applied.
	Rate float64 `json:"rate"`

	// Audio is the audio as a base64-encoded string.
	Audio string `json:"audio_base64,omitempty"`

	// ContentType is the MIME type of Audio.
	ContentType string `json:"content_type,omitempty"`

	// ClientSynthesis is set when no server-side tier produced audio and
	// the client is expected to use its own speech synthesis.
	ClientSynthesis bool `json:"client_synthesis,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (s *Speech) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		s.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// AudioBytes decodes the audio payload.
func (s *Speech) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Audio)
}

// SpeakRequest asks for a sentence to be spoken in a client's session.
type SpeakRequest struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`

	// Language is the locale to speak ("hi-IN", "en-IN"). When empty it is
	// derived from the text.
	Language string `json:"language,omitempty"`

	// Voice overrides the configured provider voice.
	Voice string `json:"voice,omitempty"`

	// Rate overrides the configured speed multiplier when > 0.
	Rate float64 `json:"rate,omitempty"`
}

// Result is the outcome of running one utterance through the pipeline.
type Result struct {
	// ID is the utterance ID.
	ID string `json:"id"`

	// ClientID echoes the utterance client.
	ClientID string `json:"client_id"`

	// Transcript is the raw input text.
	Transcript string `json:"transcript"`

	// Language is the detected answer language.
	Language Language `json:"language"`

	// Intent is the resolved intent (kind "unknown" when resolution failed).
	Intent Intent `json:"intent"`

	// Answer is the single displayed answer.
	Answer Answer `json:"answer"`

	// Source names the stage that produced the answer.
	Source Source `json:"source"`

	// Phase is the terminal phase reached (done or failed).
	Phase Phase `json:"phase"`

	// Statuses lists the status updates emitted while processing.
	Statuses []string `json:"statuses"`

	// Speech is set when audio was delivered.
	Speech *Speech `json:"speech,omitempty"`

	// Error is set when the request ended in the failed phase.
	Error string `json:"error,omitempty"`
}

// NormalizeLocale maps free-form locale strings ("hi_IN", "HI") to a BCP-47
// style tag, defaulting to "en-US" like the browser recognizer does.
func NormalizeLocale(locale string) string {
	l := strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if l == "" {
		return "en-US"
	}
	parts := strings.SplitN(l, "-", 2)
	if len(parts) == 1 {
		return strings.ToLower(parts[0])
	}
	return strings.ToLower(parts[0]) + "-" + strings.ToUpper(parts[1])
}
