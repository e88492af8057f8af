package fingerprint

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"crosspost/internal/config"
)

// Record is one durable dedupe entry. Records are append-only; pruning is a
// deliberate non-feature.
type Record struct {
	Key        string
	SourceName string
	CreatedAt  time.Time
}

// Store persists fingerprints of published logical units across runs.
type Store interface {
	// Has reports whether a fingerprint with the given key was previously
	// recorded.
	Has(ctx context.Context, key string) (bool, error)
	// Record appends a fingerprint. Recording an existing key is a no-op,
	// not an error.
	Record(ctx context.Context, key, sourceName string, createdAt time.Time) error
	// HasPostedOnDate reports whether any fingerprint was recorded on the
	// same calendar date as t, evaluated in the store's configured timezone.
	HasPostedOnDate(ctx context.Context, t time.Time) (bool, error)
	// List returns the most recently recorded fingerprints, newest first,
	// up to limit (0 means no limit).
	List(ctx context.Context, limit int) ([]Record, error)
	// Count returns the total number of recorded fingerprints.
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Open constructs the store selected by configuration. An unreachable store
// is fatal to the run, so errors here abort startup.
func Open(cfg *config.Config) (Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	loc := cfg.Location()
	switch cfg.Store.Backend {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = filepath.Join(cfg.Paths.StateDir, "fingerprints.db")
		}
		return openSQLite(path, loc)
	case "json":
		path := cfg.Store.Path
		if path == "" {
			path = filepath.Join(cfg.Paths.StateDir, "fingerprints.json")
		}
		return openJSONFile(path, loc)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func sameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
