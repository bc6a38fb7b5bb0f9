// Package config loads the sources file that drives ingestion runs.
// Application-level flags and environment are handled by the CLI via
// viper; this file only describes feeds.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults apply to any source that does not override them.
type Defaults struct {
	MaxParallelFetches int     `yaml:"max_parallel_fetches"`
	Timeout            float64 `yaml:"timeout"` // seconds
	Retries            int     `yaml:"retries"`
	BaseDelay          float64 `yaml:"base_delay"` // seconds
}

// StringList accepts either a scalar or a sequence in YAML, so a
// source can declare one feed URL or several under the same key.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		if single != "" {
			*s = StringList{single}
		}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("url: expected string or list, got %v", value.Kind)
	}
}

// Source describes one feed or sitemap to ingest.
type Source struct {
	Name               string     `yaml:"name"`
	URL                StringList `yaml:"url"`
	URLTemplate        string     `yaml:"url_template"`
	Type               string     `yaml:"type"` // rss | sitemap
	Publisher          string     `yaml:"publisher"`
	Enabled            *bool      `yaml:"enabled"`
	MaxParallelFetches int        `yaml:"max_parallel_fetches"`
	Timeout            float64    `yaml:"timeout"`
	MaxArticles        int        `yaml:"max_articles"`
	DaysBack           int        `yaml:"days_back"`
	ExtractContent     bool       `yaml:"extract_content"`
}

// IsEnabled defaults to true when the field is omitted.
func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Key is the watermark key for this source: name, else first URL.
func (s *Source) Key() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.URL) > 0 {
		return s.URL[0]
	}
	if s.URLTemplate != "" {
		return s.URLTemplate
	}
	return "unknown"
}

// Config is the parsed sources file.
type Config struct {
	Defaults Defaults `yaml:"defaults"`
	Sources  []Source `yaml:"sources"`
}

// MaxParallel resolves the per-source fetch concurrency.
func (c *Config) MaxParallel(s *Source) int {
	if s.MaxParallelFetches > 0 {
		return s.MaxParallelFetches
	}
	if c.Defaults.MaxParallelFetches > 0 {
		return c.Defaults.MaxParallelFetches
	}
	return 5
}

// FetchTimeout resolves the per-fetch timeout.
func (c *Config) FetchTimeout(s *Source) time.Duration {
	secs := s.Timeout
	if secs <= 0 {
		secs = c.Defaults.Timeout
	}
	if secs <= 0 {
		secs = 15
	}
	return time.Duration(secs * float64(time.Second))
}

// RetryCount resolves how many retries a fetch gets.
func (c *Config) RetryCount() int {
	if c.Defaults.Retries > 0 {
		return c.Defaults.Retries
	}
	return 2
}

// RetryBaseDelay resolves the backoff base delay.
func (c *Config) RetryBaseDelay() time.Duration {
	if c.Defaults.BaseDelay > 0 {
		return time.Duration(c.Defaults.BaseDelay * float64(time.Second))
	}
	return 500 * time.Millisecond
}

// Load reads and parses a sources YAML file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
