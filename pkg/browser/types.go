package browser

import (
	"errors"
	"strings"
	"time"
)

// Viewport defines the browser viewport size.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// SessionConfig configures how a browser session is launched.
type SessionConfig struct {
	ExecPath         string        `yaml:"exec_path"`
	Headless         bool          `yaml:"headless"`
	Viewport         Viewport      `yaml:"viewport"`
	UserAgent        string        `yaml:"user_agent"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// DefaultSessionConfig returns the recommended session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Headless: true,
		Viewport: Viewport{
			Width:  1280,
			Height: 720,
		},
		OperationTimeout: 30 * time.Second,
	}
}

// WithDefaults fills zero values from DefaultSessionConfig.
func (c SessionConfig) WithDefaults() SessionConfig {
	defaults := DefaultSessionConfig()
	if c.Viewport.Width == 0 {
		c.Viewport.Width = defaults.Viewport.Width
	}
	if c.Viewport.Height == 0 {
		c.Viewport.Height = defaults.Viewport.Height
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = defaults.OperationTimeout
	}
	c.ExecPath = strings.TrimSpace(c.ExecPath)
	return c
}

// Validate checks whether the config is usable.
func (c SessionConfig) Validate() error {
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return errors.New("viewport must be positive")
	}
	if c.OperationTimeout < 0 {
		return errors.New("operation_timeout must be zero or positive")
	}
	return nil
}
