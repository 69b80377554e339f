// Package transport defines the interface for pluggable client transports.
//
// Each transport (HTTP, gRPC, MQTT) plays the UI collaborator role: it
// accepts utterances, hands them to the Service and returns the displayed
// answer. The Service does not care how requests arrive.
package transport

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/agrivoice/internal/message"
)

// Service is what every transport exposes to clients.
type Service interface {
	// Ask runs one utterance through the pipeline.
	Ask(ctx context.Context, utt *message.Utterance) (*message.Result, error)

	// Speak speaks a sentence in the client's speech session.
	Speak(ctx context.Context, sr message.SpeakRequest) (*message.Speech, error)

	// History returns the client's displayed conversation.
	History(client string) []message.Entry
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and serves them with svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// AnonymousClient is the client id used when a request names none.
const AnonymousClient = "anonymous"

// Prepare fills the fields a transport owns: a request id, the client id
// and the receive time.
func Prepare(utt *message.Utterance) {
	if utt.ID == "" {
		utt.ID = uuid.NewString()
	}
	utt.ClientID = strings.TrimSpace(utt.ClientID)
	if utt.ClientID == "" {
		utt.ClientID = AnonymousClient
	}
	if utt.Timestamp.IsZero() {
		utt.Timestamp = time.Now().UTC()
	}
}
