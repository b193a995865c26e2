package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// defaultConfig carries every default, the file and the environment only
// override it.
const defaultConfig = `
limiter:
  max_retries: 3
  initial_delay: 5s
  max_concurrent: 10
  requests_per_second: 0
  attempt_timeout: 0
log:
  level: info
  max_size_mb: 50
  max_backups: 3
`

// RedditConfig are the platform credentials.
type RedditConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	UserAgent    string `koanf:"user_agent"`
}

// LimiterConfig configures the resilience chain around the platform calls.
type LimiterConfig struct {
	MaxRetries        int           `koanf:"max_retries"`
	InitialDelay      time.Duration `koanf:"initial_delay"`
	MaxConcurrent     int           `koanf:"max_concurrent"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	AttemptTimeout    time.Duration `koanf:"attempt_timeout"`
}

// LogConfig configures the logger output.
type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// Config is the whole application configuration.
type Config struct {
	Reddit  RedditConfig  `koanf:"reddit"`
	Limiter LimiterConfig `koanf:"limiter"`
	Log     LogConfig     `koanf:"log"`
}

// Load builds the configuration from the defaults, an optional YAML file
// and the environment. `REDDIT_*` variables carry the platform
// credentials, `COMMENTSWEEP_*` variables override any other setting
// (e.g. COMMENTSWEEP_LIMITER_MAX_RETRIES).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultConfig)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading default configuration: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
		}
	}

	// REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT.
	if err := k.Load(env.Provider("REDDIT_", ".", func(s string) string {
		return "reddit." + strings.ToLower(strings.TrimPrefix(s, "REDDIT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading credentials from environment: %w", err)
	}

	if err := k.Load(env.Provider("COMMENTSWEEP_", ".", func(s string) string {
		// COMMENTSWEEP_LIMITER_MAX_RETRIES -> limiter.max_retries.
		s = strings.ToLower(strings.TrimPrefix(s, "COMMENTSWEEP_"))
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading overrides from environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings a run can't go without.
func (c *Config) Validate() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return fmt.Errorf("reddit client id and secret are required (REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET)")
	}
	if c.Reddit.UserAgent == "" {
		return fmt.Errorf("a reddit user agent is required (REDDIT_USER_AGENT)")
	}
	return nil
}
