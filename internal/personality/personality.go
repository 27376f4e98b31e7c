// Package personality decorates composed replies with a fixed tone preset.
package personality

import (
	"strings"

	"github.com/ent0n29/recall/internal/memory"
)

// ID names a personality preset. Values outside the known set are valid
// inputs and render like Neutral.
type ID string

const (
	Neutral        ID = "neutral"
	CalmMentor     ID = "calm_mentor"
	WittyFriend    ID = "witty_friend"
	TherapistStyle ID = "therapist_style"
)

// DemoReply is the base reply rendered by Preview callers that have nothing
// better to show.
const DemoReply = "This is an example reply to the user."

type profile struct {
	label  string
	prefix string
}

func profileFor(id ID) profile {
	switch id {
	case CalmMentor:
		return profile{label: "Calm Mentor", prefix: "👨‍🏫 (Calm mentor tone) "}
	case WittyFriend:
		return profile{label: "Witty Friend", prefix: "😄 (Witty friend tone) "}
	case TherapistStyle:
		return profile{label: "Therapist-style Listener", prefix: "🧠 (Therapist-style tone) "}
	case Neutral:
		fallthrough
	default:
		return profile{label: "Neutral Assistant"}
	}
}

// All lists the known personalities in display order.
func All() []ID {
	return []ID{Neutral, CalmMentor, WittyFriend, TherapistStyle}
}

// Labels maps every known personality to its display label.
func Labels() map[ID]string {
	out := make(map[ID]string, 4)
	for _, id := range All() {
		out[id] = profileFor(id).label
	}
	return out
}

// Parse normalizes a caller-supplied identifier. Empty input means Neutral;
// unknown identifiers are kept as-is.
func Parse(s string) ID {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Neutral
	}
	return ID(s)
}

func (id ID) Known() bool {
	switch id {
	case Neutral, CalmMentor, WittyFriend, TherapistStyle:
		return true
	default:
		return false
	}
}

// Label returns the display label, the neutral one for unknown ids.
func (id ID) Label() string {
	return profileFor(id).label
}

// Prefix returns the decoration placed before a reply.
func (id ID) Prefix() string {
	return profileFor(id).prefix
}

// ApplyTone renders baseReply in the given personality. The memory argument
// does not change the output.
func ApplyTone(baseReply string, id ID, _ *memory.UserMemory) string {
	return profileFor(id).prefix + baseReply
}

// Variant is one rendering of a reply under a personality.
type Variant struct {
	ID    ID     `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Reply string `json:"reply" yaml:"reply"`
}

// Preview renders baseReply under every known personality.
func Preview(baseReply string) []Variant {
	ids := All()
	out := make([]Variant, 0, len(ids))
	for _, id := range ids {
		out = append(out, Variant{
			ID:    id,
			Label: id.Label(),
			Reply: ApplyTone(baseReply, id, nil),
		})
	}
	return out
}
