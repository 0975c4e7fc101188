// Package analysis produces tone-coaching feedback and end-of-session recaps by calling
// a language model, and normalizes whatever the model returns.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"tone-coach-service/internal/models"
)

// Errors returned by analyzers.
var (
	// ErrUpstream wraps transport and provider failures. Malformed model text is not
	// an error; it is recovered by Normalize.
	ErrUpstream       = errors.New("analysis upstream failure")
	ErrEmptyText      = errors.New("text is required")
	ErrNoUtterances   = errors.New("utterances[] required")
	ErrMissingAPIKey  = errors.New("analysis: api key required")
	ErrMissingBaseURL = errors.New("analysis: remote url required")
)

// DefaultContext is used when a request carries no context label.
const DefaultContext = "general"

// Request is the input to an analysis call.
type Request struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// Analyzer is the boundary to the model-backed analysis and recap endpoints.
type Analyzer interface {
	// Analyze returns coaching feedback for one block of customer speech.
	Analyze(ctx context.Context, req Request) (models.AnalysisResult, error)

	// Recap returns a free-text recap of a whole conversation.
	Recap(ctx context.Context, utterances []models.Utterance) (string, error)
}

const analyzeSystemPrompt = "You are a JSON generator. Return ONLY minified JSON. No prose. No markdown. No code fences."

func analyzePrompt(req Request) string {
	label := req.Context
	if label == "" {
		label = DefaultContext
	}
	return fmt.Sprintf(`Fill this JSON for the CUSTOMER utterance below. Keep bullets <= 12 words.
Return exactly this shape (minified):
{"tone":"","confidence":3,"bullets":["","",""],"evidence":""}

Constraints:
- tone ∈ ["%s"]
- confidence ∈ 1..5
- bullets: 3 owner-facing actions, short and specific
- evidence: brief clause citing the customer's phrasing
Context: %s
Utterance: """%s"""`, strings.Join(models.Tones, `","`), label, req.Text)
}

// maxRecapInput bounds the serialized conversation sent to the model.
const maxRecapInput = 8000

func recapPrompt(utterances []models.Utterance) (string, error) {
	payload, err := json.Marshal(utterances)
	if err != nil {
		return "", err
	}
	body := string(payload)
	if len(body) > maxRecapInput {
		cut := maxRecapInput
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return "Create a 4-bullet coaching recap focusing on tone shifts and next steps.\nEach bullet <= 14 words.\n\n" + body, nil
}

func upstreamError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
}
