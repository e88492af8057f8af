package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks configuration invariants. Credentials are validated
// separately via Credentials so tests and read-only commands can load a
// config without the environment set up.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Backend {
	case "sqlite", "json":
	default:
		problems = append(problems, fmt.Sprintf("store.backend: unsupported value %q (expected sqlite or json)", c.Store.Backend))
	}

	if _, err := time.LoadLocation(c.Store.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("store.timezone: %v", err))
	}

	if c.Fetch.BaseURL == "" {
		problems = append(problems, "fetch.base_url: required")
	}
	if c.Publish.BaseURL == "" {
		problems = append(problems, "publish.base_url: required")
	}
	if c.Fetch.Limit > 100 {
		problems = append(problems, "fetch.limit: must be at most 100")
	}

	switch c.Caption.Provider {
	case "openai", "gemini", "none":
	default:
		problems = append(problems, fmt.Sprintf("caption.provider: unsupported value %q (expected openai, gemini, or none)", c.Caption.Provider))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format))
	}

	seen := make(map[string]string, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			problems = append(problems, fmt.Sprintf("sources[%d]: name required", i))
		}
		canonical := src.CanonicalHandle()
		if canonical == "" {
			problems = append(problems, fmt.Sprintf("sources[%d] (%s): handle required", i, src.Name))
			continue
		}
		if prior, ok := seen[strings.ToLower(canonical)]; ok {
			problems = append(problems, fmt.Sprintf("sources[%d] (%s): duplicate handle %s (already used by %s)", i, src.Name, src.Handle, prior))
			continue
		}
		seen[strings.ToLower(canonical)] = src.Name
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Location returns the store timezone as a loaded location. Validate
// guarantees this succeeds for a validated config.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Store.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Credentials holds secrets supplied via the process environment.
type Credentials struct {
	SourceToken  string
	PublishToken string
	CaptionKey   string
}

// Environment variable names for credentials.
const (
	EnvSourceToken  = "SOURCE_API_TOKEN"
	EnvPublishToken = "PUBLISH_API_TOKEN"
	EnvCaptionKey   = "CAPTION_API_KEY"
)

// LoadCredentials reads credentials from the environment. The source and
// publish tokens are always required; the caption key only when a caption
// provider is configured.
func (c *Config) LoadCredentials(getenv func(string) string) (Credentials, error) {
	creds := Credentials{
		SourceToken:  strings.TrimSpace(getenv(EnvSourceToken)),
		PublishToken: strings.TrimSpace(getenv(EnvPublishToken)),
		CaptionKey:   strings.TrimSpace(getenv(EnvCaptionKey)),
	}

	var missing []string
	if creds.SourceToken == "" {
		missing = append(missing, EnvSourceToken)
	}
	if creds.PublishToken == "" {
		missing = append(missing, EnvPublishToken)
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("missing credentials: %s not set", strings.Join(missing, ", "))
	}

	if c.Caption.Provider != "none" && creds.CaptionKey == "" {
		return Credentials{}, errors.New("missing credentials: " + EnvCaptionKey + " not set (required when caption.provider is configured)")
	}

	return creds, nil
}
