package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists audit records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("open sqlite: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS extraction_audit (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			personality_id TEXT NOT NULL DEFAULT '',
			turn_count INTEGER NOT NULL,
			user_turn_count INTEGER NOT NULL,
			preferences INTEGER NOT NULL,
			emotional_patterns INTEGER NOT NULL,
			facts INTEGER NOT NULL,
			last_user_excerpt TEXT NOT NULL DEFAULT '',
			redacted INTEGER NOT NULL DEFAULT 0,
			created_at_ns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_extraction_audit_created ON extraction_audit (created_at_ns);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extraction_audit (id, request_id, operation, personality_id, turn_count, user_turn_count,
			preferences, emotional_patterns, facts, last_user_excerpt, redacted, created_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RequestID,
		record.Operation,
		record.PersonalityID,
		record.TurnCount,
		record.UserTurnCount,
		record.Preferences,
		record.EmotionalPatterns,
		record.Facts,
		record.LastUserExcerpt,
		record.Redacted,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save audit record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, operation, personality_id, turn_count, user_turn_count,
			preferences, emotional_patterns, facts, last_user_excerpt, redacted, created_at_ns
		 FROM extraction_audit ORDER BY created_at_ns DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent audit records: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		var (
			r  Record
			ns int64
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Operation, &r.PersonalityID, &r.TurnCount, &r.UserTurnCount,
			&r.Preferences, &r.EmotionalPatterns, &r.Facts, &r.LastUserExcerpt, &r.Redacted, &ns); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		r.CreatedAt = time.Unix(0, ns).UTC()
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	reverse(items)
	return items, nil
}

func (s *SQLiteStore) Mode() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
