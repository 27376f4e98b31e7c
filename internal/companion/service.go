package companion

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ent0n29/recall/internal/audit"
	"github.com/ent0n29/recall/internal/memory"
	"github.com/ent0n29/recall/internal/observability"
	"github.com/ent0n29/recall/internal/personality"
)

const auditSaveTimeout = 2 * time.Second

// Config wires the collaborators of a Service. Every field is optional.
type Config struct {
	MergeEvidence bool
	ExcerptRunes  int
	Audit         audit.Store
	Metrics       *observability.Metrics
	Logger        *log.Logger
}

// Service runs the extract, compose and tone pipeline for the API and CLI.
type Service struct {
	extractor    *memory.Extractor
	audit        audit.Store
	metrics      *observability.Metrics
	logger       *log.Logger
	excerptRunes int
}

// ChatResult is the outcome of one chat exchange.
type ChatResult struct {
	Reply         string            `json:"reply" yaml:"reply"`
	BaseReply     string            `json:"-" yaml:"-"`
	PersonalityID personality.ID    `json:"personalityId" yaml:"personality_id"`
	Memory        memory.UserMemory `json:"memory" yaml:"memory"`
}

// DemoResult renders the demo reply under every personality.
type DemoResult struct {
	BaseReply string                `json:"baseReply"`
	Variants  []personality.Variant `json:"variants"`
}

func NewService(cfg Config) *Service {
	var opts []memory.Option
	if cfg.MergeEvidence {
		opts = append(opts, memory.WithEvidenceMerge())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{
		extractor:    memory.NewDefaultExtractor(opts...),
		audit:        cfg.Audit,
		metrics:      cfg.Metrics,
		logger:       logger,
		excerptRunes: cfg.ExcerptRunes,
	}
}

// Rules exposes the active rule table.
func (s *Service) Rules() []memory.Rule {
	return s.extractor.Rules()
}

// Extract derives memory from turns and records the call.
func (s *Service) Extract(ctx context.Context, requestID string, turns []memory.ChatTurn) memory.UserMemory {
	started := time.Now()
	mem := s.extract(turns, audit.OpExtract)
	s.record(ctx, audit.NewRecord(audit.OpExtract, requestID, turns, mem, "", s.excerptRunes))
	s.metrics.ObserveStage("request_total", time.Since(started))
	return mem
}

// Chat extracts memory, composes the base reply around it and applies the
// personality tone. op names the caller in the audit trail.
func (s *Service) Chat(ctx context.Context, requestID, op string, turns []memory.ChatTurn, id personality.ID) ChatResult {
	started := time.Now()
	res := s.render(turns, id, op)
	s.record(ctx, audit.NewRecord(op, requestID, turns, res.Memory, id, s.excerptRunes))
	s.metrics.ObserveStage("request_total", time.Since(started))
	return res
}

// Render is Chat without an audit record, for read-only views.
func (s *Service) Render(turns []memory.ChatTurn, id personality.ID) ChatResult {
	return s.render(turns, id, "render")
}

func (s *Service) render(turns []memory.ChatTurn, id personality.ID, source string) ChatResult {
	mem := s.extract(turns, source)

	t := time.Now()
	base := ComposeReply(LastMessage(turns), mem)
	s.metrics.ObserveStage("compose", time.Since(t))
	if mem.IsEmpty() {
		s.metrics.ObserveIndicator("fallback_reply")
	}

	t = time.Now()
	reply := personality.ApplyTone(base, id, &mem)
	s.metrics.ObserveStage("tone", time.Since(t))
	s.metrics.ObserveTone(toneLabel(id))

	return ChatResult{
		Reply:         reply,
		BaseReply:     base,
		PersonalityID: id,
		Memory:        mem,
	}
}

func (s *Service) Demo() DemoResult {
	return DemoResult{
		BaseReply: personality.DemoReply,
		Variants:  personality.Preview(personality.DemoReply),
	}
}

// RecentAudit lists recent audit records, or nothing when auditing is off.
func (s *Service) RecentAudit(ctx context.Context, limit int) ([]audit.Record, error) {
	if s.audit == nil {
		return []audit.Record{}, nil
	}
	records, err := s.audit.Recent(ctx, limit)
	if err != nil {
		s.metrics.ObserveAuditError("recent")
		return nil, err
	}
	if records == nil {
		records = []audit.Record{}
	}
	return records, nil
}

func (s *Service) AuditMode() string {
	if s.audit == nil {
		return "disabled"
	}
	return s.audit.Mode()
}

func (s *Service) extract(turns []memory.ChatTurn, source string) memory.UserMemory {
	t := time.Now()
	mem := s.extractor.Extract(turns)
	s.metrics.ObserveStage("extract", time.Since(t))
	s.metrics.ObserveExtraction(source, map[string]int{
		string(memory.CategoryPreferences):       len(mem.Preferences),
		string(memory.CategoryEmotionalPatterns): len(mem.EmotionalPatterns),
		string(memory.CategoryFacts):             len(mem.FactsWorthRemembering),
	})
	s.logger.Debug("memory extracted",
		"source", source,
		"turns", len(turns),
		"items", mem.Len())
	return mem
}

// record saves an audit entry. Failures are logged and never reach the caller.
func (s *Service) record(ctx context.Context, rec audit.Record) {
	if s.audit == nil {
		return
	}
	t := time.Now()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditSaveTimeout)
	defer cancel()
	if err := s.audit.Save(saveCtx, rec); err != nil {
		s.metrics.ObserveAuditError("save")
		s.logger.Warn("audit save failed", "operation", rec.Operation, "err", err)
		return
	}
	s.metrics.ObserveStage("audit", time.Since(t))
}

func toneLabel(id personality.ID) string {
	if id.Known() {
		return string(id)
	}
	return "unknown"
}
