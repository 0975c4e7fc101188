package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/coaching"
	"tone-coach-service/internal/config"
	"tone-coach-service/internal/events"
	"tone-coach-service/internal/session"
)

// AnalyzerFactory builds the analysis backend from configuration.
type AnalyzerFactory func(cfg config.AnalyzerConfig) (analysis.Analyzer, error)

// DefaultAnalyzerFactory selects the Anthropic or remote analyzer.
func DefaultAnalyzerFactory(cfg config.AnalyzerConfig) (analysis.Analyzer, error) {
	switch cfg.Provider {
	case "anthropic", "":
		c, err := analysis.NewClaude(analysis.ClaudeConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic analyzer: %w (set ANTHROPIC_API_KEY)", err)
		}
		return c, nil
	case "remote":
		r, err := analysis.NewRemote(cfg.RemoteURL, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("remote analyzer: %w (set ANALYZER_REMOTE_URL)", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Provider)
	}
}

var newAnalyzer AnalyzerFactory = DefaultAnalyzerFactory

var rootCmd = &cobra.Command{
	Use:           "tone-coach",
	Short:         "tone-coach - live tone coaching for customer calls",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, replayCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sessionOptions(cfg *config.Configuration) session.Options {
	return session.Options{
		Coaching: coaching.Config{
			Debounce:   cfg.Coaching.Debounce,
			QuickFlush: cfg.Coaching.QuickFlush,
			Cooldown:   cfg.Coaching.Cooldown,
			MinChars:   cfg.Coaching.MinChars,
		},
		AssistantRole:    cfg.Coaching.AssistantRole,
		Context:          cfg.Coaching.Context,
		DropStaleResults: cfg.Coaching.DropStaleResults,
		Retention:        cfg.Coaching.SessionRetention,
	}
}

func publisherConfig(cfg *config.Configuration) *events.Config {
	return &events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicAnalysis: cfg.Kafka.TopicAnalysis,
		TopicRecap:    cfg.Kafka.TopicRecap,
		Principal:     cfg.Kafka.Principal,
	}
}
