package personality

import (
	"strings"
	"testing"

	"github.com/ent0n29/recall/internal/memory"
)

func TestApplyToneNeutralIsIdentity(t *testing.T) {
	for _, in := range []string{"", "Hello", "multi\nline reply", "😄 already decorated"} {
		if got := ApplyTone(in, Neutral, nil); got != in {
			t.Fatalf("ApplyTone(%q, neutral) = %q", in, got)
		}
	}
}

func TestApplyToneUnknownFallsBackToNeutral(t *testing.T) {
	for _, id := range []ID{"", "pirate", "CALM_MENTOR", "calm mentor"} {
		if got := ApplyTone("Hello", id, nil); got != "Hello" {
			t.Fatalf("ApplyTone(Hello, %q) = %q, want identity", id, got)
		}
	}
}

func TestApplyToneWittyFriend(t *testing.T) {
	if got := ApplyTone("Hello", WittyFriend, nil); got != "😄 (Witty friend tone) Hello" {
		t.Fatalf("ApplyTone() = %q", got)
	}
}

func TestApplyTonePrefixes(t *testing.T) {
	cases := []struct {
		id   ID
		want string
	}{
		{CalmMentor, "👨‍🏫 (Calm mentor tone) "},
		{WittyFriend, "😄 (Witty friend tone) "},
		{TherapistStyle, "🧠 (Therapist-style tone) "},
	}
	base := "You said something important.\n\n• Preferences:\n"
	for _, tc := range cases {
		got := ApplyTone(base, tc.id, nil)
		if got != tc.want+base {
			t.Fatalf("ApplyTone(%s) = %q, want %q", tc.id, got, tc.want+base)
		}
		if !strings.HasSuffix(got, base) {
			t.Fatalf("ApplyTone(%s) altered the base reply", tc.id)
		}
		if tc.id.Prefix() != tc.want {
			t.Fatalf("%s.Prefix() = %q, want %q", tc.id, tc.id.Prefix(), tc.want)
		}
	}
}

func TestApplyToneIgnoresMemory(t *testing.T) {
	mem := memory.Extract([]memory.ChatTurn{{Role: memory.RoleUser, Content: "stressed in my hostel"}})
	for _, id := range All() {
		if ApplyTone("x", id, &mem) != ApplyTone("x", id, nil) {
			t.Fatalf("memory changed output for %s", id)
		}
	}
}

func TestLabels(t *testing.T) {
	want := map[ID]string{
		Neutral:        "Neutral Assistant",
		CalmMentor:     "Calm Mentor",
		WittyFriend:    "Witty Friend",
		TherapistStyle: "Therapist-style Listener",
	}
	got := Labels()
	if len(got) != len(want) {
		t.Fatalf("len(Labels()) = %d, want %d", len(got), len(want))
	}
	for id, label := range want {
		if got[id] != label {
			t.Fatalf("Labels()[%s] = %q, want %q", id, got[id], label)
		}
	}
	if ID("pirate").Label() != "Neutral Assistant" {
		t.Fatalf("unknown Label() = %q", ID("pirate").Label())
	}
}

func TestParse(t *testing.T) {
	cases := map[string]ID{
		"":                Neutral,
		"  ":              Neutral,
		"witty_friend":    WittyFriend,
		" Calm_Mentor ":   CalmMentor,
		"something_else":  "something_else",
		"THERAPIST_STYLE": TherapistStyle,
	}
	for in, want := range cases {
		if got := Parse(in); got != want {
			t.Fatalf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
	if Parse("pirate").Known() {
		t.Fatalf("Known() = true for unknown id")
	}
}

func TestPreview(t *testing.T) {
	variants := Preview(DemoReply)
	if len(variants) != 4 {
		t.Fatalf("len(Preview()) = %d, want 4", len(variants))
	}
	if variants[0].ID != Neutral || variants[0].Reply != DemoReply {
		t.Fatalf("variants[0] = %+v", variants[0])
	}
	if variants[3].Label != "Therapist-style Listener" {
		t.Fatalf("variants[3].Label = %q", variants[3].Label)
	}
	for _, v := range variants {
		if !strings.HasSuffix(v.Reply, DemoReply) {
			t.Fatalf("variant %s reply %q missing base reply", v.ID, v.Reply)
		}
	}
}
