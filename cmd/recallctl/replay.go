package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/protocol"
	"github.com/ent0n29/recall/internal/reliability"
)

type replayOptions struct {
	baseURL       string
	personalityID string
	turnTimeout   time.Duration
	interTurn     time.Duration
	verbose       bool
}

var createSessionPolicy = reliability.Policy{
	Attempts: 4,
	Base:     200 * time.Millisecond,
	Cap:      2 * time.Second,
}

type createSessionRequest struct {
	PersonalityID string `json:"personalityId,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Stream a conversation through a live session on a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := loadTurns(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			snap, err := runReplay(cmd.Context(), opts, turns, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Reply)
			return writeFormatted(cmd.OutOrStdout(), "json", snap.Memory)
		},
	}
	defaultURL := strings.TrimSpace(os.Getenv("RECALL_URL"))
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", defaultURL, "server base URL")
	cmd.Flags().StringVarP(&opts.personalityID, "personality", "p", "", "personality id for the session")
	cmd.Flags().DurationVar(&opts.turnTimeout, "turn-timeout", 10*time.Second, "max wait for each snapshot")
	cmd.Flags().DurationVar(&opts.interTurn, "inter-turn-delay", 0, "pause between turns")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print every snapshot")
	return cmd
}

// runReplay sends every turn over the session websocket and returns the last
// memory snapshot.
func runReplay(ctx context.Context, opts replayOptions, turns []memory.ChatTurn, logw io.Writer) (protocol.MemorySnapshot, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.baseURL), "/")

	sessionID, err := createSession(ctx, httpClient, baseURL, opts.personalityID)
	if err != nil {
		return protocol.MemorySnapshot{}, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = endSession(context.Background(), httpClient, baseURL, sessionID)
	}()

	wsURL, err := wsURLForSession(baseURL, sessionID)
	if err != nil {
		return protocol.MemorySnapshot{}, fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return protocol.MemorySnapshot{}, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	last, err := awaitSnapshot(conn, opts.turnTimeout)
	if err != nil {
		return protocol.MemorySnapshot{}, fmt.Errorf("initial snapshot: %w", err)
	}

	for i, turn := range turns {
		started := time.Now()
		content, _ := json.Marshal(turn.Content)
		msg := protocol.ClientTurn{
			Type:      protocol.TypeTurn,
			SessionID: sessionID,
			Role:      turn.Role,
			Content:   content,
		}
		if msg.Role == "" {
			// Role-less turns still occupy an index on the server.
			msg.Role = "unknown"
		}
		if err := conn.WriteJSON(msg); err != nil {
			return last, fmt.Errorf("turn %d send: %w", i+1, err)
		}
		last, err = awaitSnapshot(conn, opts.turnTimeout)
		if err != nil {
			return last, fmt.Errorf("turn %d: %w", i+1, err)
		}
		if opts.verbose {
			fmt.Fprintf(logw, "recallctl: turn %d/%d role=%s items=%d latency=%s\n",
				i+1, len(turns), turn.Role, last.Memory.Len(), time.Since(started).Round(time.Microsecond))
		}
		if opts.interTurn > 0 && i < len(turns)-1 {
			time.Sleep(opts.interTurn)
		}
	}
	return last, nil
}

// awaitSnapshot reads until the next memory snapshot. An error event ends the
// wait with its detail.
func awaitSnapshot(conn *websocket.Conn, timeout time.Duration) (protocol.MemorySnapshot, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return protocol.MemorySnapshot{}, err
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeMemorySnapshot:
			var snap protocol.MemorySnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return protocol.MemorySnapshot{}, err
			}
			return snap, nil
		case protocol.TypeErrorEvent:
			var ev protocol.ErrorEvent
			_ = json.Unmarshal(data, &ev)
			return protocol.MemorySnapshot{}, fmt.Errorf("error_event code=%s detail=%s", ev.Code, ev.Detail)
		}
	}
}

func createSession(ctx context.Context, client *http.Client, baseURL, personalityID string) (string, error) {
	payload, err := json.Marshal(createSessionRequest{PersonalityID: strings.TrimSpace(personalityID)})
	if err != nil {
		return "", err
	}

	var out createSessionResponse
	err = reliability.Do(ctx, createSessionPolicy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/sessions", bytes.NewReader(payload))
		if err != nil {
			return reliability.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusCreated {
			statusErr := fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
			if reliability.IsRetryableHTTPStatus(res.StatusCode) {
				return statusErr
			}
			return reliability.Permanent(statusErr)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return reliability.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("missing session_id in response")
	}
	return out.SessionID, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/sessions/"+url.PathEscape(sessionID)+"/end", nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func wsURLForSession(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/sessions/ws"
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
