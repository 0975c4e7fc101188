package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tone-coach-service/internal/app"
	"tone-coach-service/internal/config"
	"tone-coach-service/internal/events"
	httpapi "tone-coach-service/internal/http"
	"tone-coach-service/internal/observability"
	"tone-coach-service/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coaching HTTP API and the metrics server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	application := app.New(cfg)

	analyzer, err := newAnalyzer(cfg.Analyzer)
	if err != nil {
		return err
	}

	publisher := events.New(publisherConfig(cfg))
	defer publisher.Close()

	voice := session.VoiceConfig{PublicKey: cfg.Voice.PublicKey, AssistantID: cfg.Voice.AssistantID}
	if err := voice.Validate(); err != nil {
		application.Logger.Warn().Err(err).Msg("Live sessions disabled until voice config is set")
	}
	sessions := session.NewManager(analyzer, publisher, voice, sessionOptions(cfg))
	defer sessions.Close()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx, time.Minute)

	obs := observability.NewServer(cfg.Observability.MetricsAddr, func() bool {
		return !application.StartupTime.IsZero()
	})
	obs.Start()

	server := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application, analyzer, sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := application.Start(); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		application.Logger.Info().Str("addr", server.Addr).Msg("Tone coach HTTP API started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	application.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := obs.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("Observability server shutdown error")
	}
	return nil
}
