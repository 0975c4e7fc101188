package app

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/config"
	"tone-coach-service/internal/observability/logging"
)

const serviceName = "tone-coach-service"

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("Tone coach service application created")
	return a
}

// setupLogger configures the global zerolog logger and derives the process logger.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.Cfg.Observability.LogLevel
	logCfg.Format = a.Cfg.Observability.LogFormat
	logging.Init(logCfg)

	a.Logger = log.With().
		Str("service", serviceName).
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("logFormat", logCfg.Format).
		Msg("Logger setup completed")
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("analyzer", a.Cfg.Analyzer.Provider).
		Bool("kafka", a.Cfg.Kafka.Enabled).
		Bool("voiceConfigured", a.Cfg.Voice.PublicKey != "" && a.Cfg.Voice.AssistantID != "").
		Msg("Tone coach service starting")

	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().
		Dur("uptime", a.Uptime()).
		Msg("Tone coach service shutting down")
}
