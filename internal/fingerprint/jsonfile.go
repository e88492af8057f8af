package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// jsonRecord is the on-disk shape of one entry in the flat-file backend.
type jsonRecord struct {
	Key        string    `json:"key"`
	SourceName string    `json:"source_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// jsonStore keeps the full fingerprint set in memory and rewrites the file
// atomically on every record. Suited to small deployments that want a
// greppable state file instead of a database.
type jsonStore struct {
	mu      sync.Mutex
	path    string
	loc     *time.Location
	records map[string]jsonRecord
}

func openJSONFile(path string, loc *time.Location) (*jsonStore, error) {
	store := &jsonStore{
		path:    path,
		loc:     loc,
		records: make(map[string]jsonRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read fingerprint file: %w", err)
	}

	var entries []jsonRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse fingerprint file %s: %w", path, err)
	}
	for _, entry := range entries {
		store.records[entry.Key] = entry
	}
	return store, nil
}

func (s *jsonStore) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok, nil
}

func (s *jsonStore) Record(_ context.Context, key, sourceName string, createdAt time.Time) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("fingerprint key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; ok {
		return nil
	}
	s.records[key] = jsonRecord{Key: key, SourceName: sourceName, CreatedAt: createdAt.UTC()}
	if err := s.persistLocked(); err != nil {
		// Roll back so a later retry attempts the write again.
		delete(s.records, key)
		return err
	}
	return nil
}

func (s *jsonStore) persistLocked() error {
	entries := make([]jsonRecord, 0, len(s.records))
	for _, entry := range s.records {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fingerprints: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".fingerprints-*.json")
	if err != nil {
		return fmt.Errorf("create temp fingerprint file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write fingerprint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close fingerprint file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace fingerprint file: %w", err)
	}
	return nil
}

func (s *jsonStore) HasPostedOnDate(_ context.Context, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.records {
		if sameDate(entry.CreatedAt, t, s.loc) {
			return true, nil
		}
	}
	return false, nil
}

func (s *jsonStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, entry := range s.records {
		records = append(records, Record(entry))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].Key > records[j].Key
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *jsonStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *jsonStore) Close() error {
	return nil
}
