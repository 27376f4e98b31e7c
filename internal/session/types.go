package session

import (
	"time"

	"github.com/ent0n29/recall/internal/personality"
)

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	PersonalityID string `json:"personalityId"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string         `json:"session_id"`
	Status          Status         `json:"status"`
	PersonalityID   personality.ID `json:"personalityId"`
	StartedAt       time.Time      `json:"started_at"`
	LastActivityAt  time.Time      `json:"last_activity_at"`
	InactivityTTLMS int64          `json:"inactivity_ttl_ms"`
}
