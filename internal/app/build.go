package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ent0n29/recall/internal/audit"
	"github.com/ent0n29/recall/internal/companion"
	"github.com/ent0n29/recall/internal/config"
	"github.com/ent0n29/recall/internal/httpapi"
	"github.com/ent0n29/recall/internal/observability"
	"github.com/ent0n29/recall/internal/reliability"
	"github.com/ent0n29/recall/internal/session"
)

var auditConnectPolicy = reliability.Policy{
	Attempts: 3,
	Base:     250 * time.Millisecond,
	Cap:      2 * time.Second,
}

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Service  *companion.Service
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Logger   *log.Logger

	// Cleanup releases the audit store. Call it on shutdown.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *log.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = log.Default()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var store audit.Store
	if cfg.AuditEnabled {
		err := reliability.Do(ctx, auditConnectPolicy, func(ctx context.Context) error {
			s, err := audit.NewStore(ctx, cfg.DatabaseURL)
			if err != nil {
				logger.Warn("audit store unavailable", "err", err)
				return err
			}
			store = s
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("audit store init failed: %w", err)
		}
	}

	service := companion.NewService(companion.Config{
		MergeEvidence: cfg.MergeEvidence,
		ExcerptRunes:  cfg.AuditExcerptRunes,
		Audit:         store,
		Metrics:       metrics,
		Logger:        logger.WithPrefix("companion"),
	})

	sessions := session.NewManager(cfg.SessionInactivityTimeout, cfg.SessionMaxTurns)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.ObserveSessionEvent("expired", sessions.ActiveCount())
		logger.Debug("session expired", "session_id", s.ID)
	})

	api := httpapi.New(cfg, service, sessions, metrics, logger.WithPrefix("http"))

	cleanup := func() error {
		if store == nil {
			return nil
		}
		return store.Close()
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Service:  service,
		Sessions: sessions,
		Metrics:  metrics,
		Logger:   logger,
		Cleanup:  cleanup,
	}, nil
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	opts := log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		TimeFormat:      time.Kitchen,
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		opts.Formatter = log.TextFormatter
	case "json":
		opts.Formatter = log.JSONFormatter
		opts.TimeFormat = time.RFC3339
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
		opts.TimeFormat = time.RFC3339
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	return log.NewWithOptions(w, opts), nil
}
