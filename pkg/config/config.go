// Package config defines the repscollect settings document and its loading
// rules. Settings come from an optional YAML file; command-line flags
// override file values, and anything left unset falls back to a default.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the entry point of the provider registry portal.
const DefaultBaseURL = "https://prestadores.minsalud.gov.co/habilitacion/work.aspx?tOut=true"

// Defaults for the timing knobs. The pacing delay is a deliberate
// rate-limit toward the remote server, not a tuning parameter.
const (
	DefaultWatchTimeout      = 30 * time.Second
	DefaultPollInterval      = 1 * time.Second
	DefaultPacing            = 3 * time.Second
	DefaultNavigationTimeout = 10 * time.Second
)

// Settings holds the full configuration for one run.
type Settings struct {
	// DownloadDir is the directory receiving exported files. Required.
	DownloadDir string `yaml:"download_dir"`

	// BaseURL is the portal entry point.
	BaseURL string `yaml:"base_url"`

	// Headless controls whether the browser runs without a window.
	Headless bool `yaml:"headless"`

	// WatchTimeout bounds the wait for one download to land on disk.
	WatchTimeout time.Duration `yaml:"watch_timeout"`

	// PollInterval is the delay between download-directory scans.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Pacing is the delay between consecutive region attempts.
	Pacing time.Duration `yaml:"pacing"`

	// NavigationTimeout bounds each individual UI wait.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// Default returns settings with every optional field at its default and
// DownloadDir unset.
func Default() *Settings {
	return &Settings{
		BaseURL:           DefaultBaseURL,
		WatchTimeout:      DefaultWatchTimeout,
		PollInterval:      DefaultPollInterval,
		Pacing:            DefaultPacing,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// Load reads settings from a YAML file, filling unset fields with defaults.
// An empty path is not an error: callers get pure defaults and supply the
// rest via flags.
func Load(path string) (*Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	settings.applyDefaults()
	return settings, nil
}

// UnmarshalYAML decodes duration fields from human-readable strings
// ("45s", "1m30s"), which yaml.v3 does not do for time.Duration natively.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DownloadDir       string `yaml:"download_dir"`
		BaseURL           string `yaml:"base_url"`
		Headless          bool   `yaml:"headless"`
		WatchTimeout      string `yaml:"watch_timeout"`
		PollInterval      string `yaml:"poll_interval"`
		Pacing            string `yaml:"pacing"`
		NavigationTimeout string `yaml:"navigation_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.DownloadDir = raw.DownloadDir
	s.BaseURL = raw.BaseURL
	s.Headless = raw.Headless

	for _, field := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"watch_timeout", raw.WatchTimeout, &s.WatchTimeout},
		{"poll_interval", raw.PollInterval, &s.PollInterval},
		{"pacing", raw.Pacing, &s.Pacing},
		{"navigation_timeout", raw.NavigationTimeout, &s.NavigationTimeout},
	} {
		if field.value == "" {
			continue
		}
		d, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
		*field.dst = d
	}

	return nil
}

// applyDefaults restores defaults for fields the YAML left at zero.
func (s *Settings) applyDefaults() {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.WatchTimeout <= 0 {
		s.WatchTimeout = DefaultWatchTimeout
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.Pacing <= 0 {
		s.Pacing = DefaultPacing
	}
	if s.NavigationTimeout <= 0 {
		s.NavigationTimeout = DefaultNavigationTimeout
	}
}

// Validate checks that the settings describe a runnable configuration.
func (s *Settings) Validate() error {
	if s.DownloadDir == "" {
		return fmt.Errorf("download directory is required (set download_dir or use -dir)")
	}
	if s.PollInterval > s.WatchTimeout {
		return fmt.Errorf("poll interval (%s) exceeds watch timeout (%s)", s.PollInterval, s.WatchTimeout)
	}
	return nil
}
