package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ent0n29/recall/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		BindAddr:                 ":0",
		SessionInactivityTimeout: time.Minute,
		SessionMaxTurns:          10,
		MetricsNamespace:         fmt.Sprintf("test_app_%d", time.Now().UnixNano()),
		MaxBodyBytes:             1 << 20,
		AuditEnabled:             true,
		AuditExcerptRunes:        40,
	}
}

func TestBuildWiresInMemoryAudit(t *testing.T) {
	res, err := Build(context.Background(), testConfig(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()

	if got := res.Service.AuditMode(); got != "in-memory" {
		t.Fatalf("AuditMode() = %q, want in-memory", got)
	}

	ts := httptest.NewServer(res.API.Router())
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/v1/memory/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"journaling helps"}]}`))
	if err != nil {
		t.Fatalf("POST chat error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d", resp.StatusCode)
	}

	records, err := res.Service.RecentAudit(context.Background(), 0)
	if err != nil || len(records) != 1 {
		t.Fatalf("RecentAudit() = %v, %v", records, err)
	}
}

func TestBuildAuditDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AuditEnabled = false
	res, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := res.Service.AuditMode(); got != "disabled" {
		t.Fatalf("AuditMode() = %q, want disabled", got)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
}

func TestBuildSQLiteAudit(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseURL = "sqlite::memory:"
	res, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()
	if got := res.Service.AuditMode(); got != "sqlite" {
		t.Fatalf("AuditMode() = %q, want sqlite", got)
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("json output = %q", buf.String())
	}

	buf.Reset()
	logger, err = NewLogger(&buf, "warn", "logfmt")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("logfmt output = %q", buf.String())
	}

	if _, err := NewLogger(&buf, "loud", "text"); err == nil {
		t.Fatalf("NewLogger() accepted invalid level")
	}
	if _, err := NewLogger(&buf, "info", "xml"); err == nil {
		t.Fatalf("NewLogger() accepted invalid format")
	}
}
