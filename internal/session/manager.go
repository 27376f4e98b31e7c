package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

const defaultMaxTurns = 200

var (
	ErrNotFound  = errors.New("session not found")
	ErrEnded     = errors.New("session ended")
	ErrTurnLimit = errors.New("session turn limit reached")
)

// Session holds the turns of one live conversation. It lives only in process
// memory and is dropped after it ends.
type Session struct {
	ID             string            `json:"session_id"`
	Status         Status            `json:"status"`
	PersonalityID  personality.ID    `json:"personalityId"`
	Turns          []memory.ChatTurn `json:"messages"`
	StartedAt      time.Time         `json:"started_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	maxTurns          int
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration, maxTurns int) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 2 * time.Minute
	}
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
		maxTurns:          maxTurns,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(personalityID personality.ID) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		Status:         StatusActive,
		PersonalityID:  personalityID,
		Turns:          []memory.ChatTurn{},
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// AppendTurn adds a turn to an active session and returns the updated copy.
func (m *Manager) AppendTurn(sessionID string, turn memory.ChatTurn) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if len(s.Turns) >= m.maxTurns {
		return nil, ErrTurnLimit
	}
	s.Turns = append(s.Turns, turn)
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) SetPersonality(sessionID string, id personality.ID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	s.PersonalityID = id
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

// Reset drops every turn of an active session.
func (m *Manager) Reset(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	s.Turns = []memory.ChatTurn{}
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) activeLocked(sessionID string) (*Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		return nil, ErrEnded
	}
	return s, nil
}

// expireInactive ends idle sessions and forgets ended ones once they have
// been idle for another full timeout.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		idle := now.Sub(s.LastActivityAt)
		if s.Status != StatusActive {
			if idle >= m.inactivityTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if idle < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.Turns = []memory.ChatTurn{}
		s.LastActivityAt = now
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Turns = append([]memory.ChatTurn(nil), s.Turns...)
	if c.Turns == nil {
		c.Turns = []memory.ChatTurn{}
	}
	return &c
}
