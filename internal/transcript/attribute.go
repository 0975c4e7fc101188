package transcript

import (
	"strings"

	"github.com/tidwall/gjson"

	"tone-coach-service/internal/models"
)

// DefaultAssistantRole is the role the voice platform gives its own spoken output.
const DefaultAssistantRole = "assistant"

// Extractor pulls a raw speaker value out of an event. ok is false when the rule does
// not apply and the next extractor should be tried.
type Extractor struct {
	Name    string
	Extract func(e Event) (value string, ok bool)
}

// Extractors is the resolution order used by Attributor. First match wins.
var Extractors = []Extractor{
	{Name: "direct", Extract: directField},
	{Name: "metadata", Extract: metadataField},
	{Name: "messages", Extract: lastRole("messages")},
	{Name: "conversation", Extract: lastRole("conversation")},
}

var directFields = []string{"role", "speaker", "participant", "channel"}

func directField(e Event) (string, bool) {
	for _, f := range directFields {
		if v := e.get(f).String(); v != "" {
			return v, true
		}
	}
	return "", false
}

// metadataField matches as soon as metadata.speaker or metadata.channel is present,
// even when its value is empty.
func metadataField(e Event) (string, bool) {
	for _, f := range []string{"metadata.speaker", "metadata.channel"} {
		if r := e.get(f); r.Exists() && r.Type != gjson.Null {
			return r.String(), true
		}
	}
	return "", false
}

func lastRole(field string) func(Event) (string, bool) {
	return func(e Event) (string, bool) {
		arr := e.get(field)
		if !arr.IsArray() {
			return "", false
		}
		items := arr.Array()
		if len(items) == 0 {
			return "", false
		}
		if role := items[len(items)-1].Get("role").String(); role != "" {
			return role, true
		}
		return "", false
	}
}

// RawSpeaker runs the extractor chain and returns the first matched value, or "".
func RawSpeaker(e Event) string {
	for _, x := range Extractors {
		if v, ok := x.Extract(e); ok {
			return v
		}
	}
	return ""
}

// Attributor maps events to a conversational side.
type Attributor struct {
	assistantRole string
}

// NewAttributor creates an Attributor. An empty role uses DefaultAssistantRole.
func NewAttributor(assistantRole string) *Attributor {
	role := strings.ToLower(strings.TrimSpace(assistantRole))
	if role == "" {
		role = DefaultAssistantRole
	}
	return &Attributor{assistantRole: role}
}

// Attribute returns the side that produced the event. The voice assistant speaks as
// the customer in this deployment, so the assistant role maps to SideCustomer and
// everything else, including unresolvable events, maps to SideOwner.
func (a *Attributor) Attribute(e Event) models.Side {
	if strings.ToLower(RawSpeaker(e)) == a.assistantRole {
		return models.SideCustomer
	}
	return models.SideOwner
}
