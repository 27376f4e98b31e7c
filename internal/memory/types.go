package memory

// Role identifies the speaker of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is a single message of a conversation as supplied by the caller.
type ChatTurn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Category names one of the fixed memory buckets.
type Category string

const (
	CategoryPreferences       Category = "preferences"
	CategoryEmotionalPatterns Category = "emotional_patterns"
	CategoryFacts             Category = "facts"
)

// Categories lists every category in rendering order.
func Categories() []Category {
	return []Category{CategoryPreferences, CategoryEmotionalPatterns, CategoryFacts}
}

func (c Category) valid() bool {
	switch c {
	case CategoryPreferences, CategoryEmotionalPatterns, CategoryFacts:
		return true
	default:
		return false
	}
}

// Item is one atomic observation about the user.
type Item struct {
	Statement           string  `json:"statement" yaml:"statement"`
	Confidence          float64 `json:"confidence" yaml:"confidence"`
	EvidenceTurnIndexes []int   `json:"evidenceMessageIndexes" yaml:"evidence_turn_indexes"`
}

// UserMemory is the structured profile derived from a conversation.
type UserMemory struct {
	Preferences           []Item `json:"preferences" yaml:"preferences"`
	EmotionalPatterns     []Item `json:"emotionalPatterns" yaml:"emotional_patterns"`
	FactsWorthRemembering []Item `json:"factsWorthRemembering" yaml:"facts_worth_remembering"`
}

// Empty returns a UserMemory whose categories are empty, non-nil slices.
func Empty() UserMemory {
	return UserMemory{
		Preferences:           []Item{},
		EmotionalPatterns:     []Item{},
		FactsWorthRemembering: []Item{},
	}
}

// Category returns the items held in c, or nil for an unknown category.
func (m UserMemory) Category(c Category) []Item {
	switch c {
	case CategoryPreferences:
		return m.Preferences
	case CategoryEmotionalPatterns:
		return m.EmotionalPatterns
	case CategoryFacts:
		return m.FactsWorthRemembering
	default:
		return nil
	}
}

func (m *UserMemory) categoryPtr(c Category) *[]Item {
	switch c {
	case CategoryPreferences:
		return &m.Preferences
	case CategoryEmotionalPatterns:
		return &m.EmotionalPatterns
	case CategoryFacts:
		return &m.FactsWorthRemembering
	default:
		return nil
	}
}

// Len reports the total number of items across all categories.
func (m UserMemory) Len() int {
	return len(m.Preferences) + len(m.EmotionalPatterns) + len(m.FactsWorthRemembering)
}

func (m UserMemory) IsEmpty() bool {
	return m.Len() == 0
}

// LastUserMessage returns the content of the last user turn.
func LastUserMessage(turns []ChatTurn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Content, true
		}
	}
	return "", false
}
