package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"tone-coach-service/internal/analysis"
	"tone-coach-service/internal/config"
	"tone-coach-service/internal/models"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, req analysis.Request) (models.AnalysisResult, error) {
	return models.FallbackResult(), nil
}

func (stubAnalyzer) Recap(ctx context.Context, utterances []models.Utterance) (string, error) {
	return "- stub recap", nil
}

func TestDefaultAnalyzerFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AnalyzerConfig
		wantErr error
	}{
		{"anthropic without key", config.AnalyzerConfig{Provider: "anthropic"}, analysis.ErrMissingAPIKey},
		{"anthropic with key", config.AnalyzerConfig{Provider: "anthropic", APIKey: "sk-test"}, nil},
		{"remote without url", config.AnalyzerConfig{Provider: "remote"}, analysis.ErrMissingBaseURL},
		{"remote with url", config.AnalyzerConfig{Provider: "remote", RemoteURL: "http://localhost:3000"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DefaultAnalyzerFactory(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || a == nil {
				t.Errorf("expected analyzer, got %v, %v", a, err)
			}
		})
	}

	if _, err := DefaultAnalyzerFactory(config.AnalyzerConfig{Provider: "openai"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.Coaching.Cooldown = 7 * time.Second
	cfg.Coaching.DropStaleResults = true

	opts := sessionOptions(cfg)

	if opts.Coaching.Cooldown != 7*time.Second {
		t.Errorf("expected cooldown 7s, got %v", opts.Coaching.Cooldown)
	}
	if opts.Coaching.MinChars != 12 || opts.AssistantRole != "assistant" {
		t.Errorf("unexpected options %+v", opts)
	}
	if !opts.DropStaleResults {
		t.Error("expected drop stale results")
	}
	if opts.Retention != 5*time.Minute {
		t.Errorf("expected retention 5m, got %v", opts.Retention)
	}
}

func TestRunReplay_Demo(t *testing.T) {
	orig := newAnalyzer
	newAnalyzer = func(config.AnalyzerConfig) (analysis.Analyzer, error) { return stubAnalyzer{}, nil }
	defer func() { newAnalyzer = orig }()

	replayDemo = true
	defer func() { replayDemo = false }()

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())

	if err := runReplay(cmd, nil); err != nil {
		t.Fatalf("runReplay() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{`"type":"utterance"`, `"type":"analysis"`, `"type":"recap"`, "- stub recap"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %s, got:\n%s", want, got)
		}
	}
}

func TestRunReplay_RequiresInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	if err := runReplay(cmd, nil); err == nil {
		t.Error("expected error without file or --demo")
	}
}
