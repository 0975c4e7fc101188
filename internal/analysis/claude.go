package analysis

import (
	"context"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/models"
	"tone-coach-service/internal/observability/metrics"
)

const (
	providerAnthropic = "anthropic"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-7-sonnet-latest"

	analyzeMaxTokens   = 180
	analyzeTemperature = 0.0
	recapMaxTokens     = 280
	recapTemperature   = 0.3
)

// ClaudeConfig configures the Anthropic-backed analyzer.
type ClaudeConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// messagesService is the subset of the Anthropic client used here.
type messagesService interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Claude implements Analyzer with the Anthropic Messages API.
type Claude struct {
	msgs    messagesService
	model   anthropic.Model
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewClaude creates an Anthropic-backed analyzer.
func NewClaude(cfg ClaudeConfig) (*Claude, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are left to the caller's policy, which is none
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := anthropic.NewClient(opts...)
	return newClaude(&client.Messages, cfg), nil
}

func newClaude(msgs messagesService, cfg ClaudeConfig) *Claude {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Claude{
		msgs:    msgs,
		model:   anthropic.Model(model),
		timeout: cfg.Timeout,
		metrics: metrics.DefaultMetrics,
	}
}

// Analyze asks the model for tone feedback and normalizes its reply.
func (c *Claude) Analyze(ctx context.Context, req Request) (models.AnalysisResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return models.AnalysisResult{}, ErrEmptyText
	}

	raw, err := c.complete(ctx, "analyze", anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   analyzeMaxTokens,
		Temperature: param.NewOpt(analyzeTemperature),
		System:      []anthropic.TextBlockParam{{Text: analyzeSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(analyzePrompt(req))),
		},
	})
	if err != nil {
		return models.AnalysisResult{}, err
	}

	res, fallback := normalize(raw)
	if fallback {
		c.metrics.RecordFallback()
		log.Warn().Str("raw", truncate(raw, 200)).Msg("Model response not parseable, using fallback result")
	}
	return res, nil
}

// Recap asks the model for an end-of-session coaching recap.
func (c *Claude) Recap(ctx context.Context, utterances []models.Utterance) (string, error) {
	if len(utterances) == 0 {
		return "", ErrNoUtterances
	}
	prompt, err := recapPrompt(utterances)
	if err != nil {
		return "", err
	}

	return c.complete(ctx, "recap", anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   recapMaxTokens,
		Temperature: param.NewOpt(recapTemperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
}

// complete sends one request and returns the text of the first content block.
func (c *Claude) complete(ctx context.Context, kind string, params anthropic.MessageNewParams) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := c.msgs.New(ctx, params)
	c.metrics.RecordAnalysis(providerAnthropic, kind, err, time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Str("model", string(c.model)).Msg("Anthropic request failed")
		return "", upstreamError(kind, err)
	}

	if len(msg.Content) == 0 || msg.Content[0].Type != "text" {
		return "", nil
	}
	return msg.Content[0].Text, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
