package thread_test

import (
	"testing"
	"time"

	"crosspost/internal/source"
	"crosspost/internal/thread"
)

func item(id, conversationID string, createdAt time.Time) source.Item {
	return source.Item{
		ID:             id,
		Text:           "text " + id,
		ConversationID: conversationID,
		CreatedAt:      createdAt,
	}
}

func TestReconstructStandalone(t *testing.T) {
	now := time.Now()
	seed := item("10", "10", now)
	batch := []source.Item{seed, item("11", "11", now.Add(time.Minute))}

	unit := thread.Reconstruct(seed, batch)
	if len(unit) != 1 {
		t.Fatalf("expected unit of length 1, got %d", len(unit))
	}
	if unit[0].ID != "10" {
		t.Fatalf("unexpected unit head %q", unit[0].ID)
	}
}

func TestReconstructOrdersByCreatedAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Batch arrives newest first with the head in the middle.
	batch := []source.Item{
		item("3", "c1", base.Add(2*time.Second)),
		item("1", "c1", base),
		item("2", "c1", base.Add(time.Second)),
	}

	unit := thread.Reconstruct(batch[0], batch)
	if len(unit) != 3 {
		t.Fatalf("expected unit of length 3, got %d", len(unit))
	}
	for i, want := range []string{"1", "2", "3"} {
		if unit[i].ID != want {
			t.Fatalf("position %d: expected id %q, got %q", i, want, unit[i].ID)
		}
	}
}

func TestReconstructTieBreaksByID(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []source.Item{
		item("b", "c2", at),
		item("a", "c2", at),
	}

	unit := thread.Reconstruct(batch[0], batch)
	if len(unit) != 2 {
		t.Fatalf("expected unit of length 2, got %d", len(unit))
	}
	if unit[0].ID != "a" || unit[1].ID != "b" {
		t.Fatalf("expected [a b], got [%s %s]", unit[0].ID, unit[1].ID)
	}
}

func TestReconstructLonePeerInWindow(t *testing.T) {
	now := time.Now()
	// The seed continues a conversation whose earlier items fell outside the
	// fetch window; only the seed itself matches.
	seed := item("20", "5", now)
	batch := []source.Item{seed, item("21", "21", now)}

	unit := thread.Reconstruct(seed, batch)
	if len(unit) != 1 {
		t.Fatalf("expected unit of length 1, got %d", len(unit))
	}
	if unit[0].ID != "20" {
		t.Fatalf("unexpected unit head %q", unit[0].ID)
	}
}

func TestReconstructSeedMissingFromBatch(t *testing.T) {
	now := time.Now()
	seed := item("30", "c3", now)

	unit := thread.Reconstruct(seed, nil)
	if len(unit) != 1 || unit[0].ID != "30" {
		t.Fatalf("expected the seed alone, got %#v", unit)
	}
}
