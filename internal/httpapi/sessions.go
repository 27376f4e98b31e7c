package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/recall/internal/audit"
	"github.com/ent0n29/recall/internal/companion"
	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
	"github.com/ent0n29/recall/internal/protocol"
	"github.com/ent0n29/recall/internal/session"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 1 << 20
)

// sessionState is a session plus the memory and reply derived from its turns.
type sessionState struct {
	*session.Session
	Reply  string            `json:"reply"`
	Memory memory.UserMemory `json:"memory"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if respondDecodeError(w, s.decodeJSON(w, r, &req), true) {
		return
	}

	sess := s.sessions.Create(personality.Parse(req.PersonalityID))
	s.metrics.ObserveSessionEvent("created", s.sessions.ActiveCount())

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		PersonalityID:   sess.PersonalityID,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	res := s.service.Render(sess.Turns, sess.PersonalityID)
	respondJSON(w, http.StatusOK, sessionState{Session: sess, Reply: res.Reply, Memory: res.Memory})
}

func (s *Server) handleAppendTurn(w http.ResponseWriter, r *http.Request) {
	var msg protocol.ClientTurn
	if respondDecodeError(w, s.decodeJSON(w, r, &msg), false) {
		return
	}
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.AppendTurn(id, msg.Turn())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	s.metrics.ObserveSessionEvent("turn", s.sessions.ActiveCount())
	res := s.service.Chat(r.Context(), middleware.GetReqID(r.Context()), audit.OpSessionTurn, sess.Turns, sess.PersonalityID)
	respondJSON(w, http.StatusOK, snapshotOf(sess, res))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	s.metrics.ObserveSessionEvent("ended", s.sessions.ActiveCount())
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if sess.Status != session.StatusActive {
		respondSessionError(w, session.ErrEnded)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.metrics.ObserveSessionEvent("ws_connected", s.sessions.ActiveCount())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					s.metrics.ObserveWSWriteError("write_json")
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
			}
		}
	}()

	send := func(msg any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- msg:
			return true
		}
	}

	send(snapshotOf(sess, s.service.Render(sess.Turns, sess.PersonalityID)))

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	requestID := middleware.GetReqID(r.Context())
	for ctx.Err() == nil {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !send(errorEvent(sessionID, "invalid_client_message", err)) {
				break
			}
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}
		if !send(s.applyClientMessage(ctx, requestID, sessionID, parsed)) {
			break
		}
	}

	cancel()
	<-writerDone
	s.metrics.ObserveSessionEvent("ws_disconnected", s.sessions.ActiveCount())
}

// applyClientMessage mutates the session and returns the message to push back.
func (s *Server) applyClientMessage(ctx context.Context, requestID, sessionID string, msg any) any {
	var (
		sess *session.Session
		err  error
	)
	switch m := msg.(type) {
	case protocol.ClientTurn:
		if m.SessionID != sessionID {
			return errorEvent(sessionID, "session_mismatch", errors.New("session_id does not match connection"))
		}
		sess, err = s.sessions.AppendTurn(sessionID, m.Turn())
		if err != nil {
			return errorEvent(sessionID, sessionErrorCode(err), err)
		}
		s.metrics.ObserveSessionEvent("turn", s.sessions.ActiveCount())
		return snapshotOf(sess, s.service.Chat(ctx, requestID, audit.OpSessionTurn, sess.Turns, sess.PersonalityID))
	case protocol.ClientReset:
		if m.SessionID != sessionID {
			return errorEvent(sessionID, "session_mismatch", errors.New("session_id does not match connection"))
		}
		sess, err = s.sessions.Reset(sessionID)
		if err == nil {
			s.metrics.ObserveSessionEvent("reset", s.sessions.ActiveCount())
		}
	case protocol.ClientSetPersonality:
		if m.SessionID != sessionID {
			return errorEvent(sessionID, "session_mismatch", errors.New("session_id does not match connection"))
		}
		sess, err = s.sessions.SetPersonality(sessionID, personality.Parse(m.PersonalityID))
	default:
		return errorEvent(sessionID, "invalid_client_message", protocol.ErrUnsupportedType)
	}
	if err != nil {
		return errorEvent(sessionID, sessionErrorCode(err), err)
	}
	return snapshotOf(sess, s.service.Render(sess.Turns, sess.PersonalityID))
}

func snapshotOf(sess *session.Session, res companion.ChatResult) protocol.MemorySnapshot {
	return protocol.MemorySnapshot{
		Type:          protocol.TypeMemorySnapshot,
		SessionID:     sess.ID,
		TurnCount:     len(sess.Turns),
		PersonalityID: res.PersonalityID,
		Reply:         res.Reply,
		Memory:        res.Memory,
	}
}

func errorEvent(sessionID, code string, err error) protocol.ErrorEvent {
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      code,
		Source:    "gateway",
		Retryable: false,
		Detail:    err.Error(),
	}
}

func sessionErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "session_not_found"
	case errors.Is(err, session.ErrEnded):
		return "session_ended"
	case errors.Is(err, session.ErrTurnLimit):
		return "turn_limit_reached"
	default:
		return "session_error"
	}
}

func respondSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrEnded), errors.Is(err, session.ErrTurnLimit):
		status = http.StatusConflict
	}
	respondError(w, status, sessionErrorCode(err), err.Error())
}
