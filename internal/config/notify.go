package config

import (
	"fmt"
	"net/url"
	"os"
)

const (
	EnvNotifySinkURL = "DOCUPROC_NOTIFY_SINK_URL"
	EnvNotifySource  = "DOCUPROC_NOTIFY_SOURCE"
)

// NotifyConfig holds the terminal-transition event sink settings.
// An empty SinkURL disables event delivery; transitions are logged only.
type NotifyConfig struct {
	SinkURL string `toml:"sink_url"`
	Source  string `toml:"source"`
}

// Enabled reports whether an event sink is configured.
func (c *NotifyConfig) Enabled() bool {
	return c.SinkURL != ""
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *NotifyConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *NotifyConfig) Merge(overlay *NotifyConfig) {
	if overlay.SinkURL != "" {
		c.SinkURL = overlay.SinkURL
	}
	if overlay.Source != "" {
		c.Source = overlay.Source
	}
}

func (c *NotifyConfig) loadDefaults() {
	if c.Source == "" {
		c.Source = "docuproc"
	}
}

func (c *NotifyConfig) loadEnv() {
	if v := os.Getenv(EnvNotifySinkURL); v != "" {
		c.SinkURL = v
	}
	if v := os.Getenv(EnvNotifySource); v != "" {
		c.Source = v
	}
}

func (c *NotifyConfig) validate() error {
	if c.SinkURL == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(c.SinkURL); err != nil {
		return fmt.Errorf("invalid sink_url: %w", err)
	}
	return nil
}
