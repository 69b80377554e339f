// Package grpc implements the gRPC transport for agrivoice.
//
// The service agrivoice.v1.Assistant has two unary methods, Ask and Speak.
// Messages are the JSON forms of message.Utterance, message.Result,
// message.SpeakRequest and message.Speech, carried with the "json" content
// subtype, so no generated stubs are needed. The standard gRPC health
// service is registered alongside.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/rotisserie/eris"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/agrivoice/internal/dispatch"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "agrivoice.v1.Assistant"

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// AssistantServer is the server API of agrivoice.v1.Assistant.
type AssistantServer interface {
	Ask(ctx context.Context, utt *message.Utterance) (*message.Result, error)
	Speak(ctx context.Context, sr *message.SpeakRequest) (*message.Speech, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssistantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ask", Handler: askHandler},
		{MethodName: "Speak", Handler: speakHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agrivoice/v1/assistant",
}

func askHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Utterance)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssistantServer).Ask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Ask"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AssistantServer).Ask(ctx, req.(*message.Utterance))
	})
}

func speakHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.SpeakRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssistantServer).Speak(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Speak"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AssistantServer).Speak(ctx, req.(*message.SpeakRequest))
	})
}

// server adapts a transport.Service to AssistantServer.
type server struct {
	svc transport.Service
}

func (s *server) Ask(ctx context.Context, utt *message.Utterance) (*message.Result, error) {
	transport.Prepare(utt)
	res, err := s.svc.Ask(ctx, utt)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *server) Speak(ctx context.Context, sr *message.SpeakRequest) (*message.Speech, error) {
	if sr.ClientID == "" {
		sr.ClientID = transport.AnonymousClient
	}
	speech, err := s.svc.Speak(ctx, *sr)
	if err != nil {
		return nil, toStatus(err)
	}
	return speech, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, dispatch.ErrEmptyUtterance):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, dispatch.ErrSpeechDisabled):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server on the configured port.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return eris.Wrap(err, "grpc listen")
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, svc)
}

// Serve serves svc on lis until the context is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, &server{svc: svc})

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// Client calls agrivoice.v1.Assistant over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Ask calls Assistant/Ask.
func (c *Client) Ask(ctx context.Context, utt *message.Utterance) (*message.Result, error) {
	out := new(message.Result)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Ask", utt, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// Speak calls Assistant/Speak.
func (c *Client) Speak(ctx context.Context, sr *message.SpeakRequest) (*message.Speech, error) {
	out := new(message.Speech)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Speak", sr, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}
