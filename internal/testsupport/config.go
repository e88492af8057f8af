package testsupport

import (
	"path/filepath"
	"testing"

	"crosspost/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Store.Timezone = "UTC"
	cfg.Sources = []config.Source{{Name: "example", Handle: "@example"}}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithStoreBackend overrides the fingerprint store backend.
func WithStoreBackend(backend string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Store.Backend = backend
	}
}

// WithSources replaces the configured source list.
func WithSources(sources ...config.Source) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sources = sources
	}
}
