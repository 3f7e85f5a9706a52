package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	synerrors "github.com/odvcencio/synthetics/pkg/errors"
)

// LoadFromPath loads a suite file over the defaults, applies environment
// overrides and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, synerrors.Wrap(err, synerrors.ErrCodeConfigLoad, "cannot read config").
			WithContext("path", path)
	}
	return Parse(data)
}

// Parse decodes a suite document over the defaults, applies environment
// overrides and validates the result. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, synerrors.Wrap(err, synerrors.ErrCodeConfigParse, "parsing YAML")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies SYNTHETICS_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SYNTHETICS_OUTPUT")); v != "" {
		cfg.Output.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNTHETICS_PLUGINS")); v != "" {
		cfg.Plugins.Kinds = splitCommaList(v)
	}
	if v := strings.TrimSpace(os.Getenv("SYNTHETICS_CHROME_PATH")); v != "" {
		cfg.Browser.ExecPath = v
	}
	if val, ok := envBool("SYNTHETICS_HEADLESS"); ok {
		cfg.Browser.Headless = val
	}
	if v := strings.TrimSpace(os.Getenv("SYNTHETICS_NATS_URL")); v != "" {
		cfg.Mirror.Enabled = true
		cfg.Mirror.NATS.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNTHETICS_LOG_LEVEL")); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNTHETICS_METRICS_ADDR")); v != "" {
		cfg.Observability.MetricsAddr = v
	}
	if val, ok := envBool("SYNTHETICS_TRACING"); ok {
		cfg.Observability.Tracing = val
	}
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
