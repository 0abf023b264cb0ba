package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/policy"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, 5*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Wait.PollInterval)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "lazynode", cfg.Logger.ServiceName)
	assert.Empty(t, cfg.Logger.LogFile)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.WindowWidth)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazynode.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wait:
  timeout: 2s
  poll_interval: 250ms
logger:
  level: debug
  format: json
browser:
  headless: false
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Wait.PollInterval)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 800, cfg.Browser.WindowHeight, "unset keys keep their defaults")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LAZYNODE_WAIT_TIMEOUT", "750ms")
	t.Setenv("LAZYNODE_LOGGER_LEVEL", "warn")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Wait.Timeout)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: reading")
}

func TestValidate(t *testing.T) {
	t.Run("negative timeout", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Wait.Timeout = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wait.timeout must not be negative")
	})

	t.Run("zero poll interval", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Wait.PollInterval = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wait.poll_interval must be a positive duration")
	})

	t.Run("unknown log format", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Logger.Format = "xml"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `got "xml"`)
	})

	t.Run("every problem is reported", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Wait.Timeout = -1
		cfg.Browser.WindowWidth = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wait.timeout")
		assert.Contains(t, err.Error(), "browser window size")
	})
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  format: xml\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestPolicySettings(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Wait.PollInterval = time.Millisecond
	cfg.Wait.Timeout = time.Second

	assert.Equal(t, policy.Settings{
		PollInterval: policy.MinPollInterval,
		Timeout:      time.Second,
	}, cfg.PolicySettings())
}
