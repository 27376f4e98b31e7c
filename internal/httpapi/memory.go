package httpapi

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ent0n29/recall/internal/audit"
	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
	"github.com/ent0n29/recall/internal/protocol"
)

//go:embed sample_conversation.json
var sampleConversation []byte

// SampleTurns decodes the embedded demo conversation.
func SampleTurns() []memory.ChatTurn {
	var raw []json.RawMessage
	if err := json.Unmarshal(sampleConversation, &raw); err != nil {
		return []memory.ChatTurn{}
	}
	return protocol.DecodeTurns(raw)
}

type chatResponse struct {
	OK            bool              `json:"ok"`
	Reply         string            `json:"reply"`
	PersonalityID personality.ID    `json:"personalityId"`
	Memory        memory.UserMemory `json:"memory"`
}

type personalityEntry struct {
	ID    personality.ID `json:"id"`
	Label string         `json:"label"`
}

func (s *Server) handleExtractSample(w http.ResponseWriter, r *http.Request) {
	mem := s.service.Extract(r.Context(), middleware.GetReqID(r.Context()), SampleTurns())
	respondJSON(w, http.StatusOK, mem)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req protocol.ChatRequest
	if respondDecodeError(w, s.decodeJSON(w, r, &req), true) {
		return
	}
	mem := s.service.Extract(r.Context(), middleware.GetReqID(r.Context()), req.Turns())
	respondJSON(w, http.StatusOK, mem)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req protocol.ChatRequest
	if respondDecodeError(w, s.decodeJSON(w, r, &req), true) {
		return
	}
	res := s.service.Chat(r.Context(), middleware.GetReqID(r.Context()), audit.OpChat, req.Turns(), req.Personality())
	respondJSON(w, http.StatusOK, chatResponse{
		OK:            true,
		Reply:         res.Reply,
		PersonalityID: res.PersonalityID,
		Memory:        res.Memory,
	})
}

func (s *Server) handleListPersonalities(w http.ResponseWriter, _ *http.Request) {
	ids := personality.All()
	out := make([]personalityEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, personalityEntry{ID: id, Label: id.Label()})
	}
	respondJSON(w, http.StatusOK, map[string]any{"personalities": out})
}

func (s *Server) handlePersonalityDemo(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Demo())
}

func (s *Server) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := s.service.RecentAudit(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit recent failed", "err", err)
		respondError(w, http.StatusInternalServerError, "audit_unavailable", "Failed to load audit records")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"mode":    s.service.AuditMode(),
		"records": records,
	})
}
