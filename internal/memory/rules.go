package memory

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRule = errors.New("invalid memory rule")

// Matcher reports whether a lowercased turn text triggers a rule.
type Matcher func(text string) bool

// Contains matches when any of the phrases occurs in the text.
func Contains(phrases ...string) Matcher {
	return func(text string) bool {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

// ContainsAll matches when every phrase occurs in the text.
func ContainsAll(phrases ...string) Matcher {
	return func(text string) bool {
		for _, p := range phrases {
			if !strings.Contains(text, p) {
				return false
			}
		}
		return len(phrases) > 0
	}
}

func AnyOf(matchers ...Matcher) Matcher {
	return func(text string) bool {
		for _, m := range matchers {
			if m(text) {
				return true
			}
		}
		return false
	}
}

func AllOf(matchers ...Matcher) Matcher {
	return func(text string) bool {
		for _, m := range matchers {
			if !m(text) {
				return false
			}
		}
		return len(matchers) > 0
	}
}

// Rule maps a trigger to a fixed observation in one category.
type Rule struct {
	ID         string
	Category   Category
	Statement  string
	Confidence float64
	Match      Matcher
}

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		// Preferences: likes, hobbies, habits.
		{
			ID:         "lofi_study_music",
			Category:   CategoryPreferences,
			Statement:  "User likes listening to lo-fi music while studying.",
			Confidence: 0.95,
			Match:      Contains("lo-fi", "lofi"),
		},
		{
			ID:         "scifi_anime",
			Category:   CategoryPreferences,
			Statement:  "User enjoys sci-fi movies and anime, especially on weekends.",
			Confidence: 0.95,
			Match:      Contains("sci-fi", "sci fi", "anime"),
		},
		{
			ID:         "late_night_study",
			Category:   CategoryPreferences,
			Statement:  "User prefers late-night studying despite knowing it affects sleep.",
			Confidence: 0.9,
			Match:      AnyOf(Contains("late-night studying"), ContainsAll("late", "night", "stud")),
		},
		{
			ID:         "night_walks",
			Category:   CategoryPreferences,
			Statement:  "User likes going for late-night walks to feel better.",
			Confidence: 0.85,
			Match:      Contains("walk"),
		},
		{
			ID:         "journaling",
			Category:   CategoryPreferences,
			Statement:  "User uses journaling their thoughts as a coping activity.",
			Confidence: 0.9,
			Match:      Contains("journaling"),
		},

		// Emotional patterns.
		{
			ID:         "exam_stress",
			Category:   CategoryEmotionalPatterns,
			Statement:  "User often feels stressed, mainly due to exams and placements.",
			Confidence: 0.95,
			Match:      Contains("stressed", "stress"),
		},
		{
			ID:         "hostel_loneliness",
			Category:   CategoryEmotionalPatterns,
			Statement:  "User sometimes feels lonely, staying in a hostel away from family and not meeting friends often.",
			Confidence: 0.9,
			Match:      AnyOf(Contains("lonely"), ContainsAll("alone", "hostel")),
		},
		{
			ID:         "weekend_relaxing",
			Category:   CategoryEmotionalPatterns,
			Statement:  "User uses sci-fi movies, anime, and entertainment as a way to relax on weekends.",
			Confidence: 0.85,
			Match:      AllOf(Contains("relax"), Contains("weekend", "weekends")),
		},

		// Facts worth remembering.
		{
			ID:         "final_year",
			Category:   CategoryFacts,
			Statement:  "User is in their final year of engineering.",
			Confidence: 0.95,
			Match:      Contains("final year", "final-year", "final yr"),
		},
		{
			ID:         "hostel_resident",
			Category:   CategoryFacts,
			Statement:  "User stays in a hostel away from their family.",
			Confidence: 0.9,
			Match:      Contains("hostel"),
		},
		{
			ID:         "short_sleep",
			Category:   CategoryFacts,
			Statement:  "User currently sleeps only around 5 hours per night.",
			Confidence: 0.85,
			Match:      Contains("sleep"),
		},
	}
}

// ValidateRules checks a rule table before it is handed to an Extractor.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("%w: rule %d has empty id", ErrInvalidRule, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRule, id)
		}
		seen[id] = struct{}{}
		if !r.Category.valid() {
			return fmt.Errorf("%w: rule %q has unknown category %q", ErrInvalidRule, id, r.Category)
		}
		if strings.TrimSpace(r.Statement) == "" {
			return fmt.Errorf("%w: rule %q has empty statement", ErrInvalidRule, id)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return fmt.Errorf("%w: rule %q confidence %.2f outside [0,1]", ErrInvalidRule, id, r.Confidence)
		}
		if r.Match == nil {
			return fmt.Errorf("%w: rule %q has no matcher", ErrInvalidRule, id)
		}
	}
	return nil
}
