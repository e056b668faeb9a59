package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/db/sqlite"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
)

// Backend is a catalog store that also keeps run records.
type Backend interface {
	catalog.Store
	monitor.Sink
	ListStageRecords(ctx context.Context, runID string) ([]monitor.StageRecord, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by url: postgres:// or postgresql://
// for PostgreSQL, sqlite:// or a path ending in .db/.sqlite for SQLite.
func Open(ctx context.Context, url string, maxConns int32) (Backend, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := Connect(ctx, url, maxConns)
		if err != nil {
			return nil, err
		}
		return db, nil
	case strings.HasPrefix(url, "sqlite://"):
		return openSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"), url == ":memory:":
		return openSQLite(url)
	case url == "":
		return nil, fmt.Errorf("database url is required")
	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(url))
	}
}

func openSQLite(path string) (Backend, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite catalog: %w", err)
	}
	return store, nil
}

// redact hides credentials in a connection url.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return url
}

var (
	_ Backend = (*DB)(nil)
	_ Backend = (*sqlite.Store)(nil)
)
