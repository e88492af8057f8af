package config

import (
	"os"
	"path/filepath"
)

// Default returns a configuration populated with defaults suitable for most
// deployments. Path defaults follow XDG conventions.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir(),
			ScratchDir: filepath.Join(os.TempDir(), "crosspost"),
			LogDir:     defaultLogDir(),
		},
		Store: Store{
			Backend:  "sqlite",
			Timezone: "Local",
		},
		Fetch: Fetch{
			BaseURL:        "https://api.twitter.com",
			Limit:          10,
			TimeoutSeconds: 15,
			RetryAttempts:  4,
			RetryBaseMS:    1000,
		},
		Publish: Publish{
			BaseURL:        "https://api.twitter.com",
			CharacterLimit: 280,
			ReplyDelayMS:   2000,
			TimeoutSeconds: 15,
			RetryAttempts:  4,
			RetryBaseMS:    1000,
		},
		Caption: Caption{
			Provider:       "none",
			BaseURL:        "https://api.openai.com",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 20,
		},
		Media: Media{
			Enabled:        true,
			UploadURL:      "https://upload.twitter.com/1.1/media/upload.json",
			TimeoutSeconds: 60,
		},
		Run: Run{
			OncePerDay:      false,
			IntervalSeconds: 900,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && base != "" {
		return filepath.Join(base, "crosspost")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/state/crosspost"
	}
	return filepath.Join(home, ".local", "state", "crosspost")
}

func defaultLogDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && base != "" {
		return filepath.Join(base, "crosspost", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/state/crosspost/logs"
	}
	return filepath.Join(home, ".local", "state", "crosspost", "logs")
}
