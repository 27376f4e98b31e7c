package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ent0n29/recall/internal/app"
	"github.com/ent0n29/recall/internal/config"
	"github.com/ent0n29/recall/internal/memory"
)

const yamlConversation = `
messages:
  - role: assistant
    content: what do you do on weekends?
  - role: user
    content: Honestly I prefer relaxing on weekends and listening to lofi.
  - role: user
    content:
      - type: input_text
        text: I live in a hostel.
`

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestParseTurnsShapes(t *testing.T) {
	cases := []struct {
		name string
		data string
		want []memory.ChatTurn
	}{
		{
			name: "json array",
			data: `[{"role":"user","content":"hi"},{"role":"assistant","content":"hey"}]`,
			want: []memory.ChatTurn{{Role: memory.RoleUser, Content: "hi"}, {Role: memory.RoleAssistant, Content: "hey"}},
		},
		{
			name: "json object",
			data: `{"messages":[{"role":"user","content":"hi"}]}`,
			want: []memory.ChatTurn{{Role: memory.RoleUser, Content: "hi"}},
		},
		{
			name: "yaml list",
			data: "- role: user\n  content: hi\n",
			want: []memory.ChatTurn{{Role: memory.RoleUser, Content: "hi"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTurns([]byte(tc.data))
			if err != nil {
				t.Fatalf("parseTurns() error = %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("parseTurns() = %+v, want %+v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("turn %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestParseTurnsRejects(t *testing.T) {
	for _, data := range []string{"", "   ", `"just a string"`, "key: [unclosed"} {
		if _, err := parseTurns([]byte(data)); err == nil {
			t.Fatalf("parseTurns(%q) succeeded, want error", data)
		}
	}
}

func TestExtractCommandYAMLInput(t *testing.T) {
	path := writeFile(t, "conv.yaml", yamlConversation)

	out, err := runCLI(t, "", "extract", path)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	var mem memory.UserMemory
	if err := json.Unmarshal([]byte(out), &mem); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if len(mem.Preferences) != 1 || len(mem.EmotionalPatterns) != 1 || len(mem.FactsWorthRemembering) != 1 {
		t.Fatalf("memory = %+v", mem)
	}
	if got := mem.FactsWorthRemembering[0].EvidenceTurnIndexes; len(got) != 1 || got[0] != 2 {
		t.Fatalf("hostel evidence = %v, want [2]", got)
	}
}

func TestExtractCommandStdinYAMLOutput(t *testing.T) {
	out, err := runCLI(t, `[{"role":"user","content":"I only get 5 hours of sleep"}]`, "extract", "-", "--format", "yaml")
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	if !strings.Contains(out, "facts_worth_remembering:") || !strings.Contains(out, "evidence_turn_indexes:") {
		t.Fatalf("yaml output = %s", out)
	}
}

func TestExtractCommandMergeEvidence(t *testing.T) {
	stdin := `[{"role":"user","content":"anime"},{"role":"user","content":"more anime"}]`

	out, err := runCLI(t, stdin, "extract", "-", "--merge-evidence")
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	var mem memory.UserMemory
	if err := json.Unmarshal([]byte(out), &mem); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := mem.Preferences[0].EvidenceTurnIndexes; len(got) != 2 {
		t.Fatalf("merged evidence = %v, want two indexes", got)
	}
}

func TestChatCommand(t *testing.T) {
	out, err := runCLI(t, `[{"role":"user","content":"I feel lonely"}]`, "chat", "-", "--personality", "calm_mentor")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.HasPrefix(out, "👨‍🏫 (Calm mentor tone) Thanks for opening up.") {
		t.Fatalf("chat output = %q", out)
	}
	if !strings.Contains(out, "• Emotional patterns I notice:") {
		t.Fatalf("chat output missing memory section: %q", out)
	}
}

func TestPersonalitiesAndRulesCommands(t *testing.T) {
	out, err := runCLI(t, "", "personalities")
	if err != nil {
		t.Fatalf("personalities error = %v", err)
	}
	for _, want := range []string{"neutral", "Therapist-style Listener", "😄 (Witty friend tone) This is an example reply to the user."} {
		if !strings.Contains(out, want) {
			t.Fatalf("personalities output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "", "rules")
	if err != nil {
		t.Fatalf("rules error = %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(out), "\n"); lines != len(memory.DefaultRules()) {
		t.Fatalf("rules output has %d rows, want %d:\n%s", lines, len(memory.DefaultRules()), out)
	}
}

func TestReplayAgainstServer(t *testing.T) {
	cfg := config.Config{
		SessionInactivityTimeout: time.Minute,
		SessionMaxTurns:          20,
		MetricsNamespace:         fmt.Sprintf("test_recallctl_%d", time.Now().UnixNano()),
		MaxBodyBytes:             1 << 20,
	}
	built, err := app.Build(context.Background(), cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer built.Cleanup()
	ts := httptest.NewServer(built.API.Router())
	defer ts.Close()

	turns, err := parseTurns([]byte(yamlConversation))
	if err != nil {
		t.Fatalf("parseTurns() error = %v", err)
	}
	snap, err := runReplay(context.Background(), replayOptions{
		baseURL:       ts.URL,
		personalityID: "witty_friend",
		turnTimeout:   5 * time.Second,
	}, turns, io.Discard)
	if err != nil {
		t.Fatalf("runReplay() error = %v", err)
	}
	if snap.TurnCount != len(turns) {
		t.Fatalf("TurnCount = %d, want %d", snap.TurnCount, len(turns))
	}
	want := memory.Extract(turns)
	if snap.Memory.Len() != want.Len() {
		t.Fatalf("replayed memory = %+v, want %+v", snap.Memory, want)
	}
	if !strings.HasPrefix(snap.Reply, "😄 (Witty friend tone) ") {
		t.Fatalf("reply = %q", snap.Reply)
	}
	if built.Sessions.ActiveCount() != 0 {
		t.Fatalf("session left active after replay")
	}
}

func TestWSURLForSession(t *testing.T) {
	got, err := wsURLForSession("https://example.com/base/", "abc")
	if err != nil {
		t.Fatalf("wsURLForSession() error = %v", err)
	}
	if got != "wss://example.com/base/v1/sessions/ws?session_id=abc" {
		t.Fatalf("wsURLForSession() = %q", got)
	}
	if _, err := wsURLForSession("ftp://example.com", "abc"); err == nil {
		t.Fatalf("wsURLForSession() accepted ftp scheme")
	}
}
