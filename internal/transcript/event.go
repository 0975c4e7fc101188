// Package transcript interprets raw transcription events coming from the voice
// transport. Events have no fixed schema, so fields are looked up by path with gjson.
package transcript

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Event is a read-only view over one raw transcription payload.
type Event struct {
	raw []byte
}

// NewEvent wraps a raw JSON payload. Invalid JSON yields an event with no fields.
func NewEvent(raw []byte) Event {
	if !gjson.ValidBytes(raw) {
		return Event{}
	}
	return Event{raw: raw}
}

// Raw returns the original payload.
func (e Event) Raw() []byte {
	return e.raw
}

func (e Event) get(path string) gjson.Result {
	if len(e.raw) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.raw, path)
}

// Type returns the envelope type ("transcript", "status", ...) lower-cased, if any.
func (e Event) Type() string {
	return strings.ToLower(e.get("type").String())
}

// Status returns the lower-cased status field, if any.
func (e Event) Status() string {
	return strings.ToLower(e.get("status").String())
}

// textFields are tried in order; the first non-empty value is the event's text.
var textFields = []string{"text", "transcript", "output"}

// Text returns the recognised text carried by the event.
func (e Event) Text() string {
	for _, f := range textFields {
		if r := e.get(f); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// IsFinal reports whether the event marks completed speech. Only a literal JSON true
// counts for the boolean flags.
func (e Event) IsFinal() bool {
	if e.get("is_final").Type == gjson.True || e.get("final").Type == gjson.True {
		return true
	}
	if strings.ToLower(e.get("transcriptType").String()) == "final" {
		return true
	}
	return e.Status() == "final"
}
