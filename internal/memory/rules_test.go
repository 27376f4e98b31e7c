package memory

import (
	"errors"
	"testing"
)

func TestDefaultRulesAreValid(t *testing.T) {
	if err := ValidateRules(DefaultRules()); err != nil {
		t.Fatalf("ValidateRules(DefaultRules()) error = %v", err)
	}
}

func TestDefaultRulesTriggers(t *testing.T) {
	cases := []struct {
		id   string
		text string
		want bool
	}{
		{"lofi_study_music", "lofi beats", true},
		{"lofi_study_music", "lo-fi", true},
		{"lofi_study_music", "jazz", false},
		{"scifi_anime", "sci fi shows", true},
		{"scifi_anime", "anime", true},
		{"late_night_study", "late-night studying", true},
		{"late_night_study", "late night", false},
		{"night_walks", "walking helps", true},
		{"journaling", "journal", false},
		{"exam_stress", "stress", true},
		{"hostel_loneliness", "alone", false},
		{"hostel_loneliness", "lonely", true},
		{"weekend_relaxing", "weekends to relax", true},
		{"weekend_relaxing", "weekend", false},
		{"final_year", "final yr student", true},
		{"final_year", "final-year", true},
		{"hostel_resident", "hostel", true},
		{"short_sleep", "i can't sleep", true},
	}

	rules := map[string]Rule{}
	for _, r := range DefaultRules() {
		rules[r.ID] = r
	}
	for _, tc := range cases {
		r, ok := rules[tc.id]
		if !ok {
			t.Fatalf("missing rule %q", tc.id)
		}
		if got := r.Match(tc.text); got != tc.want {
			t.Fatalf("%s.Match(%q) = %v, want %v", tc.id, tc.text, got, tc.want)
		}
	}
}

func TestValidateRulesRejectsBadTables(t *testing.T) {
	good := Rule{ID: "a", Category: CategoryFacts, Statement: "s", Confidence: 0.5, Match: Contains("x")}

	cases := map[string][]Rule{
		"empty id":         {{Category: CategoryFacts, Statement: "s", Confidence: 0.5, Match: Contains("x")}},
		"duplicate id":     {good, good},
		"unknown category": {{ID: "a", Category: "moods", Statement: "s", Confidence: 0.5, Match: Contains("x")}},
		"empty statement":  {{ID: "a", Category: CategoryFacts, Statement: " ", Confidence: 0.5, Match: Contains("x")}},
		"confidence":       {{ID: "a", Category: CategoryFacts, Statement: "s", Confidence: 1.5, Match: Contains("x")}},
		"nil matcher":      {{ID: "a", Category: CategoryFacts, Statement: "s", Confidence: 0.5}},
	}
	for name, rules := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateRules(rules)
			if !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("ValidateRules() error = %v, want ErrInvalidRule", err)
			}
			if _, err := NewExtractor(rules); !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("NewExtractor() error = %v, want ErrInvalidRule", err)
			}
		})
	}
}

func TestCustomRuleTable(t *testing.T) {
	e, err := NewExtractor([]Rule{
		{ID: "tea", Category: CategoryPreferences, Statement: "User drinks tea.", Confidence: 0.7, Match: Contains("tea")},
		{ID: "tea_again", Category: CategoryPreferences, Statement: "User drinks tea.", Confidence: 0.1, Match: Contains("chai")},
	})
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	mem := e.Extract([]ChatTurn{{Role: RoleUser, Content: "chai tea latte"}})
	if len(mem.Preferences) != 1 {
		t.Fatalf("len(Preferences) = %d, want 1", len(mem.Preferences))
	}
	if mem.Preferences[0].Confidence != 0.7 {
		t.Fatalf("Confidence = %v, want first rule's 0.7", mem.Preferences[0].Confidence)
	}
}

func TestMatcherCombinators(t *testing.T) {
	if ContainsAll()("anything") {
		t.Fatalf("ContainsAll() with no phrases matched")
	}
	if AllOf()("anything") {
		t.Fatalf("AllOf() with no matchers matched")
	}
	if AnyOf()("anything") {
		t.Fatalf("AnyOf() with no matchers matched")
	}
	m := AllOf(Contains("a", "b"), AnyOf(Contains("z"), ContainsAll("c", "d")))
	if !m("b c d") {
		t.Fatalf("composite matcher should match %q", "b c d")
	}
	if m("b c") {
		t.Fatalf("composite matcher should not match %q", "b c")
	}
}
