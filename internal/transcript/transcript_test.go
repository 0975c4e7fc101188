package transcript

import (
	"testing"

	"tone-coach-service/internal/models"
)

func ev(s string) Event {
	return NewEvent([]byte(s))
}

func TestAccept(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected bool
	}{
		{"is_final true", `{"text":"hello","is_final":true}`, true},
		{"final true", `{"transcript":"hello","final":true}`, true},
		{"transcriptType final", `{"output":"hello","transcriptType":"FINAL"}`, true},
		{"status final", `{"text":"hello","status":"final"}`, true},
		{"partial", `{"text":"hello","transcriptType":"partial"}`, false},
		{"no finality indicator", `{"text":"hello"}`, false},
		{"final as string is not boolean true", `{"text":"hello","final":"true"}`, false},
		{"final false", `{"text":"hello","final":false}`, false},
		{"empty text", `{"text":"","final":true}`, false},
		{"no text", `{"role":"assistant","final":true}`, false},
		{"invalid json", `{"text":"hello",`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(ev(tt.payload)); got != tt.expected {
				t.Errorf("Accept(%s) = %v, want %v", tt.payload, got, tt.expected)
			}
		})
	}
}

func TestCheck_Reasons(t *testing.T) {
	if got := Check(ev(`{"final":true}`)); got != RejectEmpty {
		t.Errorf("expected %q, got %q", RejectEmpty, got)
	}
	if got := Check(ev(`{"text":"hi"}`)); got != RejectPartial {
		t.Errorf("expected %q, got %q", RejectPartial, got)
	}
	if got := Check(ev(`{"text":"hi","final":true}`)); got != "" {
		t.Errorf("expected accepted, got %q", got)
	}
}

func TestEvent_TextPriority(t *testing.T) {
	tests := []struct {
		payload  string
		expected string
	}{
		{`{"text":"a","transcript":"b","output":"c"}`, "a"},
		{`{"text":"","transcript":"b","output":"c"}`, "b"},
		{`{"output":"c"}`, "c"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		if got := ev(tt.payload).Text(); got != tt.expected {
			t.Errorf("Text(%s) = %q, want %q", tt.payload, got, tt.expected)
		}
	}
}

func TestRawSpeaker_ExtractorOrder(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
	}{
		{"role", `{"role":"assistant","metadata":{"speaker":"user"}}`, "assistant"},
		{"speaker", `{"speaker":"user"}`, "user"},
		{"participant", `{"participant":"bot"}`, "bot"},
		{"channel number", `{"channel":1}`, "1"},
		{"empty role falls through", `{"role":"","speaker":"assistant"}`, "assistant"},
		{"metadata speaker", `{"metadata":{"speaker":"assistant"},"messages":[{"role":"user"}]}`, "assistant"},
		{"metadata channel", `{"metadata":{"channel":"customer-line"}}`, "customer-line"},
		{"metadata empty speaker still matches", `{"metadata":{"speaker":""},"messages":[{"role":"assistant"}]}`, ""},
		{"messages last role", `{"messages":[{"role":"user"},{"role":"assistant"}]}`, "assistant"},
		{"messages empty falls to conversation", `{"messages":[],"conversation":[{"role":"user"}]}`, "user"},
		{"messages last role empty", `{"messages":[{"role":"assistant"},{"content":"x"}],"conversation":[{"role":"bot"}]}`, "bot"},
		{"conversation last role", `{"conversation":[{"role":"assistant"},{"role":"user"}]}`, "user"},
		{"nothing", `{"text":"hi"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RawSpeaker(ev(tt.payload)); got != tt.expected {
				t.Errorf("RawSpeaker(%s) = %q, want %q", tt.payload, got, tt.expected)
			}
		})
	}
}

func TestExtractors_Individually(t *testing.T) {
	e := ev(`{"metadata":{"channel":"x"}}`)
	for _, x := range Extractors {
		v, ok := x.Extract(e)
		switch x.Name {
		case "metadata":
			if !ok || v != "x" {
				t.Errorf("metadata extractor: got (%q, %v)", v, ok)
			}
		default:
			if ok {
				t.Errorf("%s extractor should not match, got %q", x.Name, v)
			}
		}
	}
}

func TestAttributor_Attribute(t *testing.T) {
	a := NewAttributor("")

	tests := []struct {
		name     string
		payload  string
		expected models.Side
	}{
		{"assistant is customer", `{"role":"assistant"}`, models.SideCustomer},
		{"case insensitive", `{"role":"AssisTant"}`, models.SideCustomer},
		{"user is owner", `{"role":"user"}`, models.SideOwner},
		{"other role is owner", `{"speaker":"customer"}`, models.SideOwner},
		{"nested assistant", `{"conversation":[{"role":"assistant"}]}`, models.SideCustomer},
		{"unresolvable is owner", `{"text":"hi"}`, models.SideOwner},
		{"invalid json is owner", `not json`, models.SideOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Attribute(ev(tt.payload)); got != tt.expected {
				t.Errorf("Attribute(%s) = %s, want %s", tt.payload, got, tt.expected)
			}
		})
	}
}

func TestAttributor_CustomRole(t *testing.T) {
	a := NewAttributor(" Bot ")
	if got := a.Attribute(ev(`{"role":"bot"}`)); got != models.SideCustomer {
		t.Errorf("expected customer for custom role, got %s", got)
	}
	if got := a.Attribute(ev(`{"role":"assistant"}`)); got != models.SideOwner {
		t.Errorf("expected owner for default role when custom role set, got %s", got)
	}
}

func TestEvent_TypeAndStatus(t *testing.T) {
	e := ev(`{"type":"Status","status":"ENDED"}`)
	if e.Type() != "status" {
		t.Errorf("expected type 'status', got %s", e.Type())
	}
	if e.Status() != "ended" {
		t.Errorf("expected status 'ended', got %s", e.Status())
	}
}
