package transcript

// Reject reasons reported by Check.
const (
	RejectEmpty   = "empty"
	RejectPartial = "partial"
)

// Check classifies an event. It returns "" when the event is accepted, otherwise the
// reason it was dropped.
func Check(e Event) string {
	if e.Text() == "" {
		return RejectEmpty
	}
	if !e.IsFinal() {
		return RejectPartial
	}
	return ""
}

// Accept reports whether an event carries non-empty, final text. Partial and empty
// events are dropped without side effects.
func Accept(e Event) bool {
	return Check(e) == ""
}
