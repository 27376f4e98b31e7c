package audit

import (
	"context"
	"strings"
)

// NewStore picks a backend from the database URL: empty keeps records in
// process memory, sqlite: and file: URLs open SQLite, anything else is
// treated as a PostgreSQL connection string.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return NewInMemoryStore(0), nil
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "sqlite:"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"):
		return NewSQLiteStore(ctx, url)
	default:
		return NewPostgresStore(ctx, url)
	}
}
