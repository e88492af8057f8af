package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crosspost/internal/retry"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := New(server.URL, "test-token",
		WithHTTPClient(server.Client()),
		WithRetryPolicy(retry.NewPolicy(1, 0)),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestResolveHandleStripsMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/by/username/someone" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"id": "12345", "username": "someone"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	id, err := client.ResolveHandle(context.Background(), "@someone")
	if err != nil {
		t.Fatalf("ResolveHandle failed: %v", err)
	}
	if id != "12345" {
		t.Fatalf("expected id 12345, got %q", id)
	}
}

func TestResolveHandleNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"title": "Not Found Error"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.ResolveHandle(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchRecentParsesItemsAndMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/12345/tweets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("max_results") != "10" {
			t.Fatalf("unexpected max_results %q", query.Get("max_results"))
		}
		if query.Get("expansions") != "attachments.media_keys" {
			t.Fatalf("missing media expansion, got %q", query.Get("expansions"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":              "2",
					"text":            "second",
					"created_at":      "2026-03-01T10:00:00Z",
					"conversation_id": "1",
					"author_id":       "12345",
				},
				{
					"id":              "1",
					"text":            "first with photo",
					"created_at":      "2026-03-01T09:00:00Z",
					"conversation_id": "1",
					"author_id":       "12345",
					"attachments":     map[string]any{"media_keys": []string{"m1", "m2"}},
				},
			},
			"includes": map[string]any{
				"media": []map[string]any{
					{"media_key": "m1", "type": "photo", "url": "https://cdn.example/m1.jpg"},
					{"media_key": "m2", "type": "video", "preview_image_url": "https://cdn.example/m2-preview.jpg"},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	items, err := client.FetchRecent(context.Background(), "12345", 10)
	if err != nil {
		t.Fatalf("FetchRecent failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].ID != "2" || items[0].ConversationID != "1" {
		t.Fatalf("unexpected first item: %#v", items[0])
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !items[0].CreatedAt.Equal(want) {
		t.Fatalf("expected created_at %v, got %v", want, items[0].CreatedAt)
	}

	atts := items[1].Attachments
	if len(atts) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(atts))
	}
	if atts[0].URL != "https://cdn.example/m1.jpg" {
		t.Fatalf("unexpected attachment url %q", atts[0].URL)
	}
	if atts[1].URL != "https://cdn.example/m2-preview.jpg" {
		t.Fatalf("expected preview url fallback, got %q", atts[1].URL)
	}
}

func TestFetchRecentClampsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("max_results"); got != "5" {
			t.Fatalf("expected limit clamped to 5, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.FetchRecent(context.Background(), "12345", 1); err != nil {
		t.Fatalf("FetchRecent failed: %v", err)
	}
}

func TestFetchRecentRetriesRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client, err := New(server.URL, "test-token",
		WithHTTPClient(server.Client()),
		WithRetryPolicy(retry.NewPolicy(2, 0)),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := client.FetchRecent(context.Background(), "12345", 10); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
