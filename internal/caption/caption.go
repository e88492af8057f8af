// Package caption produces short annotation text for a logical unit before
// it is republished. Generation is best-effort: every backend falls back to
// a deterministic string on failure, so captioning can never block a
// publish.
package caption

import (
	"context"
	"fmt"
	"log/slog"

	"crosspost/internal/config"
	"crosspost/internal/logging"
)

// Generator produces annotation text for republished content. Generate never
// fails; implementations substitute Fallback on any error.
type Generator interface {
	Generate(ctx context.Context, sourceText, displayHandle string) string
}

// Fallback is the deterministic caption used when generation is unavailable
// or fails. It always embeds the display handle.
func Fallback(displayHandle string) string {
	return fmt.Sprintf("Reposted from %s.", displayHandle)
}

// New selects the configured caption backend. Provider "none" (or a missing
// key) yields a static generator that always returns the fallback.
func New(ctx context.Context, cfg *config.Config, apiKey string, logger *slog.Logger) (Generator, error) {
	logger = logging.NewComponentLogger(logger, "caption")
	if apiKey == "" || cfg.Caption.Provider == "none" {
		return staticGenerator{}, nil
	}
	switch cfg.Caption.Provider {
	case "openai":
		return newOpenAI(cfg.Caption, apiKey, logger), nil
	case "gemini":
		return newGemini(ctx, cfg.Caption, apiKey, logger)
	default:
		return nil, fmt.Errorf("unsupported caption provider %q", cfg.Caption.Provider)
	}
}

type staticGenerator struct{}

func (staticGenerator) Generate(_ context.Context, _, displayHandle string) string {
	return Fallback(displayHandle)
}
