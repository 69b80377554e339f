package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nadzzz/agrivoice/internal/config"
	"github.com/nadzzz/agrivoice/internal/health"
	"github.com/nadzzz/agrivoice/internal/transport"
	grpctransport "github.com/nadzzz/agrivoice/internal/transport/grpc"
	httptransport "github.com/nadzzz/agrivoice/internal/transport/http"
	mqtttransport "github.com/nadzzz/agrivoice/internal/transport/mqtt"
	"github.com/nadzzz/agrivoice/internal/tts/player"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant behind the enabled transports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Create root context with signal handling for graceful shutdown.
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// transportsFor returns the transports enabled in cfg.
func transportsFor(cfg config.TransportsConfig) []transport.Transport {
	var transports []transport.Transport
	if cfg.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.GRPC.Port))
	}
	if cfg.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.HTTP.Port, cfg.HTTP.AllowedOrigins))
	}
	if cfg.MQTT.Enabled {
		transports = append(transports, mqtttransport.New(cfg.MQTT))
	}
	return transports
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("agrivoice starting", "version", version)

	transports := transportsFor(cfg.Transports)
	if len(transports) == 0 {
		return eris.New("no transports enabled, enable at least one in config")
	}

	// Audio produced on the server is returned to the caller, not played here.
	a, err := build(cfg, player.Relay{})
	if err != nil {
		return err
	}
	defer a.Close()

	healthServer := health.New(cfg.Server.HealthPort, a.metrics.Registry)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, a.dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	healthServer.SetReady(true)
	slog.Info("agrivoice ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("agrivoice stopped")
	return nil
}
