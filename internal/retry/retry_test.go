package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoBackoffShape(t *testing.T) {
	var delays []time.Duration
	policy := NewPolicy(4, time.Second)
	policy.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	calls := 0
	err := policy.Do(context.Background(), nil, "always-fails", func() error {
		calls++
		return &StatusError{Status: 503}
	})
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d delays, got %d (%v)", len(want), len(delays), delays)
	}
	for i, d := range delays {
		if d != want[i] {
			t.Fatalf("delay %d: expected %v, got %v", i, want[i], d)
		}
	}
}

func TestDoStopsOnSuccess(t *testing.T) {
	policy := NewPolicy(4, time.Millisecond)
	policy.sleep = func(context.Context, time.Duration) error { return nil }

	calls := 0
	err := policy.Do(context.Background(), nil, "flaky", func() error {
		calls++
		if calls < 3 {
			return &StatusError{Status: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoTerminalErrorNotRetried(t *testing.T) {
	policy := NewPolicy(4, time.Millisecond)
	policy.sleep = func(context.Context, time.Duration) error {
		t.Fatal("sleep should not be called for terminal errors")
		return nil
	}

	calls := 0
	terminal := &StatusError{Status: 403, Body: "forbidden"}
	err := policy.Do(context.Background(), nil, "forbidden", func() error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Status: 429}, true},
		{"server error", &StatusError{Status: 502}, true},
		{"not found", &StatusError{Status: 404}, false},
		{"unauthorized", &StatusError{Status: 401}, false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
