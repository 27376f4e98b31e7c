package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/personality"
)

// ChatRequest is the body accepted by the extraction and chat endpoints.
// Messages stay raw so one malformed entry does not reject the whole request.
type ChatRequest struct {
	Messages      []json.RawMessage `json:"messages"`
	PersonalityID string            `json:"personalityId"`
}

func (r ChatRequest) Personality() personality.ID {
	return personality.Parse(r.PersonalityID)
}

func (r ChatRequest) Turns() []memory.ChatTurn {
	return DecodeTurns(r.Messages)
}

// DecodeTurns converts raw messages into turns. The result always has one
// turn per input message so turn indexes match the caller's array; entries
// that are not objects become role-less turns.
func DecodeTurns(raw []json.RawMessage) []memory.ChatTurn {
	out := make([]memory.ChatTurn, 0, len(raw))
	for _, msg := range raw {
		out = append(out, decodeTurn(msg))
	}
	return out
}

func decodeTurn(raw json.RawMessage) memory.ChatTurn {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return memory.ChatTurn{}
	}
	var role string
	if r, ok := fields["role"]; ok {
		_ = json.Unmarshal(r, &role)
	}
	return memory.ChatTurn{
		Role:    memory.Role(strings.ToLower(strings.TrimSpace(role))),
		Content: FlattenContent(fields["content"]),
	}
}

// FlattenContent reduces the accepted content shapes to plain text: a string,
// an array of parts (strings or {type,text} objects), an object carrying
// "text", or a scalar.
func FlattenContent(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			texts = append(texts, partText(p))
		}
		return strings.Join(texts, "\n")
	case '{':
		var obj struct {
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Text == nil {
			return ""
		}
		return *obj.Text
	default:
		return string(raw)
	}
}

func partText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	}
	var part struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &part); err != nil {
		return ""
	}
	switch part.Type {
	case "input_text", "output_text", "text":
		return part.Text
	default:
		return ""
	}
}

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeTurn           MessageType = "turn"
	TypeReset          MessageType = "reset"
	TypeSetPersonality MessageType = "set_personality"
	TypeMemorySnapshot MessageType = "memory_snapshot"
	TypeSystemEvent    MessageType = "system_event"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientTurn appends one turn to the live session. An empty role means user.
type ClientTurn struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id"`
	Role      memory.Role     `json:"role"`
	Content   json.RawMessage `json:"content"`
}

func (m ClientTurn) Turn() memory.ChatTurn {
	role := memory.Role(strings.ToLower(strings.TrimSpace(string(m.Role))))
	if role == "" {
		role = memory.RoleUser
	}
	return memory.ChatTurn{Role: role, Content: FlattenContent(m.Content)}
}

type ClientReset struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type ClientSetPersonality struct {
	Type          MessageType `json:"type"`
	SessionID     string      `json:"session_id"`
	PersonalityID string      `json:"personalityId"`
}

// MemorySnapshot is pushed after every change to a live session.
type MemorySnapshot struct {
	Type          MessageType       `json:"type"`
	SessionID     string            `json:"session_id"`
	TurnCount     int               `json:"turn_count"`
	PersonalityID personality.ID    `json:"personalityId"`
	Reply         string            `json:"reply"`
	Memory        memory.UserMemory `json:"memory"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTurn:
		var msg ClientTurn
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid turn")
		}
		return msg, nil
	case TypeReset:
		var msg ClientReset
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid reset")
		}
		return msg, nil
	case TypeSetPersonality:
		var msg ClientSetPersonality
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid set_personality")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
