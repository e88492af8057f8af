package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/logging"
	"crosspost/internal/source"
	"crosspost/internal/testsupport"
)

type fakeFetcher struct {
	items       map[string][]source.Item
	resolveErr  map[string]error
	fetchErr    map[string]error
	fetchCalls  int
	resolveByID map[string]string
}

func (f *fakeFetcher) ResolveHandle(_ context.Context, handle string) (string, error) {
	if err := f.resolveErr[handle]; err != nil {
		return "", err
	}
	if id, ok := f.resolveByID[handle]; ok {
		return id, nil
	}
	return "id-" + handle, nil
}

func (f *fakeFetcher) FetchRecent(_ context.Context, accountID string, _ int) ([]source.Item, error) {
	f.fetchCalls++
	if err := f.fetchErr[accountID]; err != nil {
		return nil, err
	}
	return f.items[accountID], nil
}

type publishedUnit struct {
	headText string
	replies  []string
	mediaIDs []string
}

type fakePublisher struct {
	units   []publishedUnit
	failFor map[string]error
	nextID  int
}

func (p *fakePublisher) PublishUnit(_ context.Context, headText string, replies []string, mediaIDs []string) (string, error) {
	if err := p.failFor[headText]; err != nil {
		return "", err
	}
	p.units = append(p.units, publishedUnit{headText: headText, replies: replies, mediaIDs: mediaIDs})
	p.nextID++
	return fmt.Sprintf("out-%d", p.nextID), nil
}

type fakeCaption struct{}

func (fakeCaption) Generate(_ context.Context, _, displayHandle string) string {
	return "Reposted from " + displayHandle + "."
}

type fakeRelay struct {
	ids []string
}

func (r *fakeRelay) Relay(_ context.Context, attachments []source.Attachment) []string {
	if len(attachments) == 0 {
		return nil
	}
	return r.ids
}

func newTestRunner(t *testing.T, cfg *config.Config, fetcher Fetcher, publisher Publisher, relay MediaRelay) (*Runner, *config.Config) {
	t.Helper()
	if cfg == nil {
		cfg = testsupport.NewConfig(t)
	}
	store := testsupport.MustOpenStore(t, cfg)
	r, err := New(cfg, store, fetcher, fakeCaption{}, relay, publisher, logging.NewNop())
	if err != nil {
		t.Fatalf("construct runner: %v", err)
	}
	return r, cfg
}

func item(id, text string, at time.Time, conversation string) source.Item {
	return source.Item{ID: id, Text: text, CreatedAt: at, ConversationID: conversation, AuthorID: "author"}
}

func TestRunPublishesOnceAcrossRuns(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{items: map[string][]source.Item{
		"id-example": {item("p1", "hello world", now, "")},
	}}
	publisher := &fakePublisher{}
	r, _ := newTestRunner(t, nil, fetcher, publisher, nil)

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Published != 1 || first.Skipped != 0 {
		t.Fatalf("first run = %+v, want 1 published", first)
	}

	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Published != 0 || second.Skipped != 1 {
		t.Fatalf("second run = %+v, want 1 skipped", second)
	}
	if len(publisher.units) != 1 {
		t.Fatalf("published %d units, want 1", len(publisher.units))
	}
}

func TestRunThreadTailDedupesToHead(t *testing.T) {
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	head := item("t1", "thread head", base, "t1")
	tail := item("t2", "thread tail", base.Add(time.Minute), "t1")
	fetcher := &fakeFetcher{items: map[string][]source.Item{
		// Newest first, as the timeline delivers.
		"id-example": {tail, head},
	}}
	publisher := &fakePublisher{}
	r, _ := newTestRunner(t, nil, fetcher, publisher, nil)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Published != 1 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v, want 1 published and 1 skipped", summary)
	}
	if len(publisher.units) != 1 {
		t.Fatalf("published %d units, want 1", len(publisher.units))
	}
	unit := publisher.units[0]
	if len(unit.replies) != 1 || unit.replies[0] != "thread tail" {
		t.Fatalf("replies = %v, want the tail text", unit.replies)
	}
}

func TestRunHeadFailureRecordsNothing(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{items: map[string][]source.Item{
		"id-example": {item("p1", "flaky post", now, "")},
	}}
	publisher := &fakePublisher{failFor: map[string]error{
		"Reposted from @example.\n\nflaky post": errors.New("boom"),
	}}
	r, _ := newTestRunner(t, nil, fetcher, publisher, nil)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 1 || summary.Published != 0 {
		t.Fatalf("summary = %+v, want 1 failed", summary)
	}

	// The destination recovers; the item must publish on the next run.
	publisher.failFor = nil
	summary, err = r.Run(context.Background())
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if summary.Published != 1 {
		t.Fatalf("retry summary = %+v, want 1 published", summary)
	}
}

func TestRunDailyGuardSkipsFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Run.OncePerDay = true
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Record(context.Background(), "prior-key", "example", time.Now()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	fetcher := &fakeFetcher{}
	publisher := &fakePublisher{}
	r, err := New(cfg, store, fetcher, fakeCaption{}, nil, publisher, logging.NewNop())
	if err != nil {
		t.Fatalf("construct runner: %v", err)
	}

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary != (Summary{}) {
		t.Fatalf("summary = %+v, want empty", summary)
	}
	if fetcher.fetchCalls != 0 {
		t.Fatalf("fetch called %d times during guarded run", fetcher.fetchCalls)
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cfg := testsupport.NewConfig(t, testsupport.WithSources(
		config.Source{Name: "broken", Handle: "@broken"},
		config.Source{Name: "working", Handle: "@working"},
	))
	fetcher := &fakeFetcher{
		resolveErr: map[string]error{"broken": source.ErrNotFound},
		items: map[string][]source.Item{
			"id-working": {item("w1", "still flows", now, "")},
		},
	}
	publisher := &fakePublisher{}
	r, _ := newTestRunner(t, cfg, fetcher, publisher, nil)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Sources != 2 || summary.Published != 1 {
		t.Fatalf("summary = %+v, want both sources visited and 1 published", summary)
	}
}

func TestRunPublishesOldestFirstWithMedia(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	older := item("a1", "first post", base, "")
	older.Attachments = []source.Attachment{{MediaKey: "m1", Type: "photo", URL: "https://cdn.example/m1.jpg"}}
	newer := item("a2", "second post", base.Add(time.Hour), "")
	fetcher := &fakeFetcher{items: map[string][]source.Item{
		"id-example": {newer, older},
	}}
	publisher := &fakePublisher{}
	relay := &fakeRelay{ids: []string{"media-1"}}
	r, _ := newTestRunner(t, nil, fetcher, publisher, relay)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Published != 2 {
		t.Fatalf("summary = %+v, want 2 published", summary)
	}
	if got := publisher.units[0].headText; got != "Reposted from @example.\n\nfirst post" {
		t.Fatalf("first published head = %q, want the older item", got)
	}
	if got := publisher.units[0].mediaIDs; len(got) != 1 || got[0] != "media-1" {
		t.Fatalf("first unit media = %v, want [media-1]", got)
	}
	if got := publisher.units[1].mediaIDs; len(got) != 0 {
		t.Fatalf("second unit media = %v, want none", got)
	}
}
