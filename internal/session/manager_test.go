package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute, 0)
	s := m.Create(personality.CalmMentor)
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PersonalityID != personality.CalmMentor || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if _, err := m.AppendTurn(s.ID, memory.ChatTurn{Role: memory.RoleUser, Content: "hi"}); !errors.Is(err, ErrEnded) {
		t.Fatalf("AppendTurn() after End error = %v, want ErrEnded", err)
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m := NewManager(time.Minute, 0)
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := m.End("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("End() error = %v, want ErrNotFound", err)
	}
}

func TestManagerAppendAndReset(t *testing.T) {
	m := NewManager(time.Minute, 0)
	s := m.Create(personality.Neutral)

	if _, err := m.AppendTurn(s.ID, memory.ChatTurn{Role: memory.RoleUser, Content: "lofi"}); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	got, err := m.AppendTurn(s.ID, memory.ChatTurn{Role: memory.RoleAssistant, Content: "nice"})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if len(got.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want 2", len(got.Turns))
	}

	// Returned copies must not alias the manager's state.
	got.Turns[0].Content = "mutated"
	again, _ := m.Get(s.ID)
	if again.Turns[0].Content != "lofi" {
		t.Fatalf("session state aliased by returned copy: %+v", again.Turns)
	}

	reset, err := m.Reset(s.ID)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(reset.Turns) != 0 {
		t.Fatalf("len(Turns) after Reset = %d, want 0", len(reset.Turns))
	}
}

func TestManagerTurnLimit(t *testing.T) {
	m := NewManager(time.Minute, 2)
	s := m.Create(personality.Neutral)
	for i := 0; i < 2; i++ {
		if _, err := m.AppendTurn(s.ID, memory.ChatTurn{Role: memory.RoleUser, Content: "x"}); err != nil {
			t.Fatalf("AppendTurn(%d) error = %v", i, err)
		}
	}
	if _, err := m.AppendTurn(s.ID, memory.ChatTurn{Role: memory.RoleUser, Content: "x"}); !errors.Is(err, ErrTurnLimit) {
		t.Fatalf("AppendTurn() error = %v, want ErrTurnLimit", err)
	}
}

func TestManagerSetPersonality(t *testing.T) {
	m := NewManager(time.Minute, 0)
	s := m.Create(personality.Neutral)
	got, err := m.SetPersonality(s.ID, personality.WittyFriend)
	if err != nil {
		t.Fatalf("SetPersonality() error = %v", err)
	}
	if got.PersonalityID != personality.WittyFriend {
		t.Fatalf("PersonalityID = %q, want %q", got.PersonalityID, personality.WittyFriend)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30*time.Millisecond, 0)
	s := m.Create(personality.Neutral)
	expired := make(chan string, 1)
	m.SetExpireHook(func(s *Session) {
		select {
		case expired <- s.ID:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired id = %q, want %q", id, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("session was not expired")
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}
