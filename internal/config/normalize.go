package config

import (
	"strings"
)

// normalize expands path fields and fills zero-valued settings with defaults
// so later validation only has to reject genuinely bad values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Store.Path != "" {
		if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
			return err
		}
	}
	if c.SourcesFile != "" {
		if c.SourcesFile, err = expandPath(c.SourcesFile); err != nil {
			return err
		}
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if strings.TrimSpace(c.Store.Timezone) == "" {
		c.Store.Timezone = "Local"
	}

	c.Fetch.BaseURL = strings.TrimRight(strings.TrimSpace(c.Fetch.BaseURL), "/")
	c.Publish.BaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.BaseURL), "/")
	c.Caption.BaseURL = strings.TrimRight(strings.TrimSpace(c.Caption.BaseURL), "/")
	c.Caption.Provider = strings.ToLower(strings.TrimSpace(c.Caption.Provider))
	if c.Caption.Provider == "" {
		c.Caption.Provider = "none"
	}

	defaults := Default()
	if c.Fetch.Limit <= 0 {
		c.Fetch.Limit = defaults.Fetch.Limit
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaults.Fetch.TimeoutSeconds
	}
	if c.Fetch.RetryAttempts <= 0 {
		c.Fetch.RetryAttempts = defaults.Fetch.RetryAttempts
	}
	if c.Fetch.RetryBaseMS <= 0 {
		c.Fetch.RetryBaseMS = defaults.Fetch.RetryBaseMS
	}
	if c.Publish.CharacterLimit <= 0 {
		c.Publish.CharacterLimit = defaults.Publish.CharacterLimit
	}
	if c.Publish.ReplyDelayMS < 0 {
		c.Publish.ReplyDelayMS = defaults.Publish.ReplyDelayMS
	}
	if c.Publish.TimeoutSeconds <= 0 {
		c.Publish.TimeoutSeconds = defaults.Publish.TimeoutSeconds
	}
	if c.Publish.RetryAttempts <= 0 {
		c.Publish.RetryAttempts = defaults.Publish.RetryAttempts
	}
	if c.Publish.RetryBaseMS <= 0 {
		c.Publish.RetryBaseMS = defaults.Publish.RetryBaseMS
	}
	if c.Caption.TimeoutSeconds <= 0 {
		c.Caption.TimeoutSeconds = defaults.Caption.TimeoutSeconds
	}
	if c.Media.TimeoutSeconds <= 0 {
		c.Media.TimeoutSeconds = defaults.Media.TimeoutSeconds
	}
	if c.Run.IntervalSeconds <= 0 {
		c.Run.IntervalSeconds = defaults.Run.IntervalSeconds
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	for i := range c.Sources {
		c.Sources[i].Name = strings.TrimSpace(c.Sources[i].Name)
		c.Sources[i].Handle = strings.TrimSpace(c.Sources[i].Handle)
	}

	return nil
}
