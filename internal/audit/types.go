package audit

import (
	"context"
	"time"
)

// Record describes one extraction call. It carries counts and a redacted
// excerpt only; extracted memory is never stored.
type Record struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"request_id,omitempty"`
	Operation         string    `json:"operation"`
	PersonalityID     string    `json:"personality_id,omitempty"`
	TurnCount         int       `json:"turn_count"`
	UserTurnCount     int       `json:"user_turn_count"`
	Preferences       int       `json:"preferences"`
	EmotionalPatterns int       `json:"emotional_patterns"`
	Facts             int       `json:"facts"`
	LastUserExcerpt   string    `json:"last_user_excerpt,omitempty"`
	Redacted          bool      `json:"redacted"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store persists and retrieves audit records.
type Store interface {
	Save(ctx context.Context, record Record) error
	// Recent returns up to limit records in chronological order.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Mode() string
	Close() error
}
