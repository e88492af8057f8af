package testsupport

import (
	"testing"

	"crosspost/internal/config"
	"crosspost/internal/fingerprint"
)

// MustOpenStore opens the configured fingerprint store and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) fingerprint.Store {
	t.Helper()
	store, err := fingerprint.Open(cfg)
	if err != nil {
		t.Fatalf("open fingerprint store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close fingerprint store: %v", err)
		}
	})
	return store
}
