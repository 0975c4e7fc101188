// Package models defines the data structures shared across the coaching pipeline.
package models

// Side identifies which conversational party produced an utterance.
type Side string

const (
	SideCustomer Side = "customer"
	SideOwner    Side = "owner"
)

// Utterance is one accepted, attributed piece of final speech.
type Utterance struct {
	Side Side   `json:"speaker"`
	Text string `json:"text"`
}

// Tones the analyzer is allowed to report.
var Tones = []string{
	"calm", "confident", "neutral", "anxious",
	"frustrated", "defensive", "uncertain", "upbeat",
}

// IsTone reports whether tone is one of the known tones.
func IsTone(tone string) bool {
	for _, t := range Tones {
		if t == tone {
			return true
		}
	}
	return false
}

// AnalysisResult is the structured coaching feedback for a customer utterance.
type AnalysisResult struct {
	Tone       string   `json:"tone"`
	Confidence int      `json:"confidence"`
	Bullets    []string `json:"bullets"`
	Evidence   string   `json:"evidence"`
}

// FallbackResult returns the fixed result used when a model response cannot be parsed.
func FallbackResult() AnalysisResult {
	return AnalysisResult{
		Tone:       "neutral",
		Confidence: 3,
		Bullets:    []string{"Acknowledge once.", "Give ETA + next step.", "Offer small make-good."},
		Evidence:   "fallback parser",
	}
}

// AnalysisEvent is published downstream for every settled analysis dispatch.
type AnalysisEvent struct {
	EventType string         `json:"eventType"`
	SessionID string         `json:"sessionId"`
	RequestID string         `json:"requestId"`
	Timestamp int64          `json:"timestamp"`
	Text      string         `json:"text"`
	Result    AnalysisResult `json:"result"`
}

// RecapEvent is published once per session when the recap is generated.
type RecapEvent struct {
	EventType  string      `json:"eventType"`
	SessionID  string      `json:"sessionId"`
	Timestamp  int64       `json:"timestamp"`
	Utterances []Utterance `json:"utterances"`
	Summary    string      `json:"summary"`
}
