package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestExcerpt(t *testing.T) {
	cases := []struct {
		name         string
		input        string
		max          int
		want         string
		wantRedacted bool
	}{
		{"short", "I love lo-fi", 40, "I love lo-fi", false},
		{"whitespace", "  too\n\tmany   spaces ", 40, "too many spaces", false},
		{"truncated", "exams and placements", 5, "exams…", false},
		{"redacted", "mail me: a@b.io", 60, "mail me: [REDACTED_EMAIL]", true},
		{"disabled", "anything", 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, redacted := Excerpt(tc.input, tc.max)
			if got != tc.want {
				t.Fatalf("Excerpt() = %q, want %q", got, tc.want)
			}
			if redacted != tc.wantRedacted {
				t.Fatalf("redacted = %v, want %v", redacted, tc.wantRedacted)
			}
		})
	}
}
