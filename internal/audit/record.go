package audit

import (
	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
	"github.com/ent0n29/recall/internal/policy"
)

const (
	OpExtract     = "extract"
	OpChat        = "chat"
	OpSessionTurn = "session_turn"
)

// NewRecord summarizes an extraction for the audit trail.
func NewRecord(op, requestID string, turns []memory.ChatTurn, mem memory.UserMemory, id personality.ID, excerptRunes int) Record {
	users := 0
	for _, t := range turns {
		if t.Role == memory.RoleUser {
			users++
		}
	}
	rec := Record{
		RequestID:         requestID,
		Operation:         op,
		PersonalityID:     string(id),
		TurnCount:         len(turns),
		UserTurnCount:     users,
		Preferences:       len(mem.Preferences),
		EmotionalPatterns: len(mem.EmotionalPatterns),
		Facts:             len(mem.FactsWorthRemembering),
	}
	if last, ok := memory.LastUserMessage(turns); ok {
		rec.LastUserExcerpt, rec.Redacted = policy.Excerpt(last, excerptRunes)
	}
	return rec
}
