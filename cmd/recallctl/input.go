package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/protocol"
)

// loadTurns reads a conversation from path, or from stdin when path is "-".
func loadTurns(path string, stdin io.Reader) ([]memory.ChatTurn, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	return parseTurns(data)
}

// parseTurns accepts a JSON or YAML document holding either a list of turns
// or an object with a "messages" list.
func parseTurns(data []byte) ([]memory.ChatTurn, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("conversation is empty")
	}
	if !json.Valid(data) {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse conversation: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("parse conversation: %w", err)
		}
		data = converted
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse conversation: %w", err)
		}
		return protocol.DecodeTurns(raw), nil
	case '{':
		var req protocol.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parse conversation: %w", err)
		}
		return req.Turns(), nil
	default:
		return nil, errors.New("conversation must be a list of turns or an object with messages")
	}
}

func writeFormatted(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
