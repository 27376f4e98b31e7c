package memory

import "strings"

// Extractor evaluates a rule table over a conversation. It holds no state
// between calls and is safe for concurrent use.
type Extractor struct {
	rules         []Rule
	mergeEvidence bool
}

type Option func(*Extractor)

// WithEvidenceMerge makes repeated observations record the turn index of every
// occurrence on the first item instead of dropping later evidence.
func WithEvidenceMerge() Option {
	return func(e *Extractor) {
		e.mergeEvidence = true
	}
}

// NewExtractor validates rules and returns an extractor evaluating them in order.
func NewExtractor(rules []Rule, opts ...Option) (*Extractor, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	e := &Extractor{rules: append([]Rule(nil), rules...)}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// NewDefaultExtractor returns an extractor over DefaultRules.
func NewDefaultExtractor(opts ...Option) *Extractor {
	e := &Extractor{rules: DefaultRules()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Extract runs the default rule table over turns.
func Extract(turns []ChatTurn) UserMemory {
	return NewDefaultExtractor().Extract(turns)
}

// Rules returns a copy of the rule table in evaluation order.
func (e *Extractor) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Extract derives a UserMemory from the user turns of a conversation.
// Assistant and role-less turns are ignored. Within a category a statement
// appears at most once, at the position where it first fired.
func (e *Extractor) Extract(turns []ChatTurn) UserMemory {
	out := Empty()
	if len(turns) == 0 {
		return out
	}

	seen := map[Category]map[string]int{
		CategoryPreferences:       {},
		CategoryEmotionalPatterns: {},
		CategoryFacts:             {},
	}

	for index, turn := range turns {
		if turn.Role != RoleUser {
			continue
		}
		text := strings.ToLower(turn.Content)
		if text == "" {
			continue
		}

		for _, rule := range e.rules {
			if !rule.Match(text) {
				continue
			}
			list := out.categoryPtr(rule.Category)
			if list == nil {
				continue
			}
			if at, dup := seen[rule.Category][rule.Statement]; dup {
				if e.mergeEvidence {
					item := &(*list)[at]
					if n := len(item.EvidenceTurnIndexes); n == 0 || item.EvidenceTurnIndexes[n-1] != index {
						item.EvidenceTurnIndexes = append(item.EvidenceTurnIndexes, index)
					}
				}
				continue
			}
			seen[rule.Category][rule.Statement] = len(*list)
			*list = append(*list, Item{
				Statement:           rule.Statement,
				Confidence:          rule.Confidence,
				EvidenceTurnIndexes: []int{index},
			})
		}
	}

	return out
}
