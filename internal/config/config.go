package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Source is a configured account to mirror.
type Source struct {
	Name   string `toml:"name" yaml:"name"`
	Handle string `toml:"handle" yaml:"handle"`
}

// CanonicalHandle returns the handle without the leading @ marker, as the
// upstream API expects it.
func (s Source) CanonicalHandle() string {
	return strings.TrimPrefix(strings.TrimSpace(s.Handle), "@")
}

// DisplayHandle returns the handle with the leading @ marker for use in
// generated text.
func (s Source) DisplayHandle() string {
	canonical := s.CanonicalHandle()
	if canonical == "" {
		return ""
	}
	return "@" + canonical
}

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Store contains fingerprint store configuration.
type Store struct {
	Backend  string `toml:"backend"` // "sqlite" or "json"
	Path     string `toml:"path"`
	Timezone string `toml:"timezone"`
}

// Fetch contains timeline API configuration.
type Fetch struct {
	BaseURL        string `toml:"base_url"`
	Limit          int    `toml:"limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBaseMS    int    `toml:"retry_base_ms"`
}

// Publish contains destination API configuration.
type Publish struct {
	BaseURL        string `toml:"base_url"`
	CharacterLimit int    `toml:"character_limit"`
	ReplyDelayMS   int    `toml:"reply_delay_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBaseMS    int    `toml:"retry_base_ms"`
}

// Caption contains generative caption configuration.
type Caption struct {
	Provider       string `toml:"provider"` // "openai", "gemini", or "none"
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Media contains media relay configuration.
type Media struct {
	Enabled        bool   `toml:"enabled"`
	UploadURL      string `toml:"upload_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Run contains orchestrator behavior settings.
type Run struct {
	OncePerDay      bool `toml:"once_per_day"`
	IntervalSeconds int  `toml:"interval_seconds"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for crosspost.
//
// Sections by subsystem:
//   - Paths: state, scratch, and log directories
//   - Store: fingerprint store backend selection
//   - Fetch: source timeline API connection and retry settings
//   - Publish: destination API connection, pacing, and retry settings
//   - Caption: generative caption provider settings
//   - Media: attachment relay settings
//   - Run: daily guard and watch interval
//   - Logging: log format and level
//
// Sources are listed inline as [[sources]] tables or in an external YAML
// file referenced by sources_file; both may be combined.
type Config struct {
	Paths       Paths    `toml:"paths"`
	Store       Store    `toml:"store"`
	Fetch       Fetch    `toml:"fetch"`
	Publish     Publish  `toml:"publish"`
	Caption     Caption  `toml:"caption"`
	Media       Media    `toml:"media"`
	Run         Run      `toml:"run"`
	Logging     Logging  `toml:"logging"`
	Sources     []Source `toml:"sources"`
	SourcesFile string   `toml:"sources_file"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/crosspost/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and the external sources file, when
// configured, already merged into Sources.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.loadSourcesFile(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("crosspost.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadSourcesFile appends entries from the external YAML sources file when
// one is configured.
func (c *Config) loadSourcesFile() error {
	path := strings.TrimSpace(c.SourcesFile)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}
	var entries []Source
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse sources file %s: %w", path, err)
	}
	c.Sources = append(c.Sources, entries...)
	return nil
}

// EnsureDirectories creates the directories required for a run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
