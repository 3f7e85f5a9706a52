// Package config loads the YAML suite file that describes which journeys
// to run and how to instrument and report them.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/odvcencio/synthetics/pkg/browser"
	"github.com/odvcencio/synthetics/pkg/bus"
	synerrors "github.com/odvcencio/synthetics/pkg/errors"
	"github.com/odvcencio/synthetics/pkg/plugins"
	"github.com/odvcencio/synthetics/pkg/reporter"
)

// Default configuration values exported for documentation and validation
const (
	DefaultOutput         = "-"
	DefaultMaxFilmstrips  = plugins.DefaultMaxFilmstrips
	DefaultSampleInterval = plugins.DefaultSampleInterval
	DefaultLogLevel       = "info"
	DefaultSubjectPrefix  = reporter.DefaultSubjectPrefix
	DefaultServiceName    = "synthetics"
)

// DefaultPlugins are the collectors attached when the suite names none.
var DefaultPlugins = []string{"network", "trace"}

// Config represents a complete suite file.
type Config struct {
	Output        OutputConfig          `yaml:"output"`
	Plugins       PluginsConfig         `yaml:"plugins"`
	Browser       browser.SessionConfig `yaml:"browser"`
	Mirror        MirrorConfig          `yaml:"mirror"`
	Observability ObservabilityConfig   `yaml:"observability"`
	Params        map[string]any        `yaml:"params"`
	Journeys      []JourneyConfig       `yaml:"journeys"`
}

// OutputConfig selects the record sink. "-" means stdout.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// PluginsConfig selects and tunes collectors.
type PluginsConfig struct {
	Kinds          []string      `yaml:"kinds"`
	MaxFilmstrips  int           `yaml:"max_filmstrips"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// MirrorConfig publishes every record on a NATS subject as well as the
// output sink.
type MirrorConfig struct {
	Enabled       bool       `yaml:"enabled"`
	NATS          bus.Config `yaml:"nats"`
	SubjectPrefix string     `yaml:"subject_prefix"`
}

// ObservabilityConfig controls logging, metrics and span export.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
	Tracing     bool   `yaml:"tracing"`
	ServiceName string `yaml:"service_name"`
}

// JourneyConfig declares one journey as an ordered list of steps.
type JourneyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
	Steps  []StepConfig   `yaml:"steps"`
}

// StepConfig declares one step. A step with a URL navigates to it.
type StepConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Path: DefaultOutput},
		Plugins: PluginsConfig{
			Kinds:          append([]string(nil), DefaultPlugins...),
			MaxFilmstrips:  DefaultMaxFilmstrips,
			SampleInterval: DefaultSampleInterval,
		},
		Browser: browser.DefaultSessionConfig(),
		Mirror: MirrorConfig{
			NATS:          bus.DefaultConfig(),
			SubjectPrefix: DefaultSubjectPrefix,
		},
		Observability: ObservabilityConfig{
			LogLevel:    DefaultLogLevel,
			ServiceName: DefaultServiceName,
		},
		Params: map[string]any{},
	}
}

// Validate checks the config and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Output.Path) == "" {
		problems = append(problems, "output.path must not be empty")
	}
	if _, err := plugins.ParseKinds(c.Plugins.Kinds); err != nil {
		problems = append(problems, fmt.Sprintf("plugins.kinds: %v", err))
	}
	if c.Plugins.MaxFilmstrips < 0 {
		problems = append(problems, "plugins.max_filmstrips must be zero or positive")
	}
	if c.Plugins.SampleInterval < 0 {
		problems = append(problems, "plugins.sample_interval must be zero or positive")
	}
	if err := c.Browser.Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("browser: %v", err))
	}
	if c.Mirror.Enabled {
		if strings.TrimSpace(c.Mirror.NATS.URL) == "" {
			problems = append(problems, "mirror.nats.url is required when mirroring is enabled")
		}
		if _, err := bus.JoinSubject(c.Mirror.SubjectPrefix, reporter.TypeEnd); err != nil {
			problems = append(problems, fmt.Sprintf("mirror.subject_prefix %q is not a valid subject", c.Mirror.SubjectPrefix))
		}
	}
	if _, err := parseLevel(c.Observability.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("observability.log_level: %v", err))
	}

	seen := make(map[string]bool, len(c.Journeys))
	for i, j := range c.Journeys {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("journeys[%d]: name is required", i))
			continue
		}
		if seen[name] {
			problems = append(problems, fmt.Sprintf("journeys[%d]: duplicate journey %q", i, name))
		}
		seen[name] = true
		problems = append(problems, validateSteps(name, j.Steps)...)
	}

	if len(problems) > 0 {
		return synerrors.New(synerrors.ErrCodeConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func validateSteps(journeyName string, steps []StepConfig) []string {
	var problems []string
	if len(steps) == 0 {
		return []string{fmt.Sprintf("journey %q: at least one step is required", journeyName)}
	}
	names := make(map[string]bool, len(steps))
	for i, s := range steps {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("journey %q step %d: name is required", journeyName, i+1))
			continue
		}
		if names[name] {
			problems = append(problems, fmt.Sprintf("journey %q: duplicate step %q", journeyName, name))
		}
		names[name] = true
		if s.URL != "" {
			u, err := url.Parse(s.URL)
			if err != nil || !u.IsAbs() {
				problems = append(problems, fmt.Sprintf("journey %q step %q: url must be absolute", journeyName, name))
			}
		}
	}
	return problems
}

// Kinds returns the configured collector kinds.
func (c *Config) Kinds() ([]plugins.Kind, error) {
	return plugins.ParseKinds(c.Plugins.Kinds)
}

// LogLevel returns the configured log level, or info if unparsable.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Observability.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, err
	}
	return level, nil
}
