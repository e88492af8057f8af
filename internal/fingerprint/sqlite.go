package fingerprint

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	schemaVersion = 1
)

// sqliteStore is the default fingerprint backend. WAL mode plus the busy
// retry loop keeps writes safe should a second process ever share the store,
// even though deployments are expected to be single-runner.
type sqliteStore struct {
	db   *sql.DB
	path string
	loc  *time.Location
}

func openSQLite(path string, loc *time.Location) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		_ = db.Close()
		return nil, fmt.Errorf("store at %s has schema version %d, newer than supported %d", path, version, schemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set schema version: %w", err)
		}
	}

	return &sqliteStore{db: db, path: path, loc: loc}, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *sqliteStore) Has(ctx context.Context, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM fingerprints WHERE key = ?", key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return count > 0, nil
}

func (s *sqliteStore) Record(ctx context.Context, key, sourceName string, createdAt time.Time) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("fingerprint key is required")
	}
	timestamp := createdAt.UTC().Format(time.RFC3339)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO fingerprints (key, source_name, created_at) VALUES (?, ?, ?)",
			key, sourceName, timestamp,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (s *sqliteStore) HasPostedOnDate(ctx context.Context, t time.Time) (bool, error) {
	day := t.In(s.loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM fingerprints WHERE created_at >= ? AND created_at < ?",
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check posted date: %w", err)
	}
	return count > 0, nil
}

func (s *sqliteStore) List(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT key, source_name, created_at FROM fingerprints ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.Key, &rec.SourceName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse fingerprint timestamp %q: %w", createdAt, err)
		}
		rec.CreatedAt = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return records, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM fingerprints").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
