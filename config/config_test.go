package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmank/commentsweep/config"
)

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(3, cfg.Limiter.MaxRetries)
	assert.Equal(5*time.Second, cfg.Limiter.InitialDelay)
	assert.Equal(10, cfg.Limiter.MaxConcurrent)
	assert.Equal(float64(0), cfg.Limiter.RequestsPerSecond)
	assert.Equal("info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reddit:
  client_id: file-id
  client_secret: file-secret
  user_agent: "commentsweep tests"
limiter:
  max_retries: 5
  initial_delay: 250ms
  requests_per_second: 2.5
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal("file-id", cfg.Reddit.ClientID)
	assert.Equal(5, cfg.Limiter.MaxRetries)
	assert.Equal(250*time.Millisecond, cfg.Limiter.InitialDelay)
	assert.Equal(2.5, cfg.Limiter.RequestsPerSecond)
	// Settings not in the file keep their defaults.
	assert.Equal(10, cfg.Limiter.MaxConcurrent)
	assert.NoError(cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("REDDIT_CLIENT_ID", "env-id")
	t.Setenv("REDDIT_CLIENT_SECRET", "env-secret")
	t.Setenv("REDDIT_USER_AGENT", "commentsweep tests")
	t.Setenv("COMMENTSWEEP_LIMITER_MAX_CONCURRENT", "20")
	t.Setenv("COMMENTSWEEP_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal("env-id", cfg.Reddit.ClientID)
	assert.Equal("env-secret", cfg.Reddit.ClientSecret)
	assert.Equal(20, cfg.Limiter.MaxConcurrent)
	assert.Equal("debug", cfg.Log.Level)
	assert.NoError(cfg.Validate())
}

func TestValidateMissingCredentials(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("REDDIT_CLIENT_ID", "")
	t.Setenv("REDDIT_CLIENT_SECRET", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Error(cfg.Validate())
}
