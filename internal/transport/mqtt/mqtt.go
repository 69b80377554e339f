// Package mqtt implements the MQTT transport for agrivoice.
//
// Devices publish a question to <prefix>/ask/<client> and receive the
// pipeline result on <prefix>/answer/<client>. Speak requests go to
// <prefix>/speak/<client> and are answered on <prefix>/speech/<client>.
// Payloads are JSON; a plain-text ask payload is taken as the transcript.
package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/transport"
)

// Transport implements transport.Transport over MQTT.
type Transport struct {
	cfg    config.MQTTConfig
	client paho.Client
}

// New creates a new MQTT transport.
func New(cfg config.MQTTConfig) *Transport {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "agrivoice"
	}
	return &Transport{cfg: cfg}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Topic builds <prefix>/<kind>/<client>.
func Topic(prefix, kind, client string) string {
	return prefix + "/" + kind + "/" + client
}

// ParseClientID extracts the client id from <prefix>/<kind>/<client>.
func ParseClientID(topic, prefix string) (kind, client string, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", "", eris.Errorf("topic %q outside prefix %q", topic, prefix)
	}
	kind, client, ok = strings.Cut(rest, "/")
	if !ok || client == "" || strings.Contains(client, "/") {
		return "", "", eris.Errorf("topic %q has no client id", topic)
	}
	return kind, client, nil
}

// Listen connects to the broker, subscribes to the request topics and
// blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(t.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		slog.Error("mqtt connection lost", "error", err)
	})
	// Subscriptions are (re)made on every connect so they survive reconnects.
	opts.SetOnConnectHandler(func(c paho.Client) {
		for _, kind := range []string{"ask", "speak"} {
			topic := Topic(t.cfg.TopicPrefix, kind, "+")
			if token := c.Subscribe(topic, 1, t.onMessage(ctx, svc)); token.Wait() && token.Error() != nil {
				slog.Error("mqtt subscribe failed", "topic", topic, "error", token.Error())
			}
		}
	})

	t.client = paho.NewClient(opts)
	if token := t.client.Connect(); token.Wait() && token.Error() != nil {
		return eris.Wrap(token.Error(), "mqtt connect")
	}
	slog.Info("mqtt transport listening", "broker", t.cfg.Broker, "prefix", t.cfg.TopicPrefix)

	<-ctx.Done()
	t.client.Disconnect(250)
	return nil
}

func (t *Transport) onMessage(ctx context.Context, svc transport.Service) paho.MessageHandler {
	return func(c paho.Client, msg paho.Message) {
		// Handle off the paho callback goroutine; pipeline runs are slow.
		go func() {
			reply, payload, ok := Handle(ctx, svc, t.cfg.TopicPrefix, msg.Topic(), msg.Payload())
			if !ok {
				return
			}
			if token := c.Publish(reply, 1, false, payload); token.WaitTimeout(10*time.Second) && token.Error() != nil {
				slog.Error("mqtt publish failed", "topic", reply, "error", token.Error())
			}
		}()
	}
}

type errorReply struct {
	Error string `json:"error"`
}

// Handle serves one request message and returns the reply topic and
// payload. ok is false when the topic is not a request topic.
func Handle(ctx context.Context, svc transport.Service, prefix, topic string, payload []byte) (reply string, body []byte, ok bool) {
	kind, client, err := ParseClientID(topic, prefix)
	if err != nil {
		slog.Warn("skip invalid mqtt topic", "topic", topic, "error", err)
		return "", nil, false
	}

	var out any
	switch kind {
	case "ask":
		reply = Topic(prefix, "answer", client)
		utt := message.Utterance{}
		if err := json.Unmarshal(payload, &utt); err != nil {
			utt.Text = string(payload)
		}
		utt.ClientID = client
		transport.Prepare(&utt)
		res, err := svc.Ask(ctx, &utt)
		if err != nil {
			out = errorReply{Error: err.Error()}
		} else {
			out = res
		}
	case "speak":
		reply = Topic(prefix, "speech", client)
		var sr message.SpeakRequest
		if err := json.Unmarshal(payload, &sr); err != nil {
			sr.Text = string(payload)
		}
		sr.ClientID = client
		speech, err := svc.Speak(ctx, sr)
		if err != nil {
			out = errorReply{Error: err.Error()}
		} else {
			out = speech
		}
	default:
		return "", nil, false
	}

	body, err = json.Marshal(out)
	if err != nil {
		slog.Error("mqtt reply marshal failed", "topic", reply, "error", err)
		return "", nil, false
	}
	return reply, body, true
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(250)
	}
	return nil
}
