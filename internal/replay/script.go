package replay

import (
	"encoding/json"
	"time"
)

// Turn is one speaker turn with progressive partial transcripts and one final.
type Turn struct {
	Role     string   // transport role; the assistant role is the customer
	Partials []string // progressive partial transcripts
	Final    string   // final transcript text
}

// DefaultScript is a short support call used by the demo replay and the test client.
var DefaultScript = []Turn{
	{
		Role:     "user",
		Partials: []string{"Thanks for", "Thanks for calling"},
		Final:    "Thanks for calling, how can I help?",
	},
	{
		Role:     "assistant",
		Partials: []string{"I've been", "I've been waiting", "I've been waiting for"},
		Final:    "I've been waiting for over an hour and nobody called me back.",
	},
	{
		Role:     "user",
		Partials: []string{"I'm sorry", "I'm sorry about"},
		Final:    "I'm sorry about that, let me check your order.",
	},
	{
		Role:     "assistant",
		Partials: []string{"I want", "I want to", "I want to cancel"},
		Final:    "I want to cancel my subscription if this isn't fixed today",
	},
	{
		Role:     "user",
		Partials: []string{"I can"},
		Final:    "I can have a technician there by three.",
	},
}

// Spacing controls how far apart scripted frames are.
type Spacing struct {
	Partial time.Duration // between partials, and from the last partial to the final
	Turn    time.Duration // silence after a final before the next turn starts
}

// DefaultSpacing leaves enough silence after each turn for the debounce to fire.
var DefaultSpacing = Spacing{Partial: 250 * time.Millisecond, Turn: 2 * time.Second}

type scriptedEvent struct {
	Type       string `json:"type"`
	Role       string `json:"role"`
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"is_final"`
}

// Frames renders a script into transport messages with offsets. A trailing
// "ended" status is appended when end is set.
func Frames(script []Turn, spacing Spacing, end bool) []Frame {
	var frames []Frame
	var at time.Duration

	add := func(v any) {
		raw, _ := json.Marshal(v)
		frames = append(frames, Frame{Offset: at, Raw: raw})
	}

	for _, turn := range script {
		for _, p := range turn.Partials {
			add(scriptedEvent{Type: "transcript", Role: turn.Role, Transcript: p})
			at += spacing.Partial
		}
		add(scriptedEvent{Type: "transcript", Role: turn.Role, Transcript: turn.Final, IsFinal: true})
		at += spacing.Turn
	}
	if end {
		add(map[string]string{"type": "status", "status": "ended"})
	}
	return frames
}
