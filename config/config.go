// Package config loads lazynode settings from defaults, an optional YAML
// file and LAZYNODE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/cboone/lazynode/policy"
)

// EnvPrefix is the prefix of environment overrides: wait.timeout is read
// from LAZYNODE_WAIT_TIMEOUT.
const EnvPrefix = "LAZYNODE"

// Config is the complete configuration.
type Config struct {
	Wait    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// WaitConfig holds the process-wide default wait policy.
type WaitConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser used by the cdp
// adapter.
type BrowserConfig struct {
	Headless     bool   `mapstructure:"headless" yaml:"headless"`
	ExecPath     string `mapstructure:"exec_path" yaml:"exec_path"`
	WindowWidth  int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int    `mapstructure:"window_height" yaml:"window_height"`
	UserAgent    string `mapstructure:"user_agent" yaml:"user_agent"`
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	// -- Wait --
	v.SetDefault("wait.timeout", policy.DefaultTimeout)
	v.SetDefault("wait.poll_interval", policy.DefaultPollInterval)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "lazynode")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
	v.SetDefault("browser.user_agent", "")
}

// NewDefaultConfig returns a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// New returns a viper instance with defaults and environment binding set
// up. Callers may bind flags to it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. An empty path skips the file; a named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	var errs []error
	if c.Wait.Timeout < 0 {
		errs = append(errs, fmt.Errorf("wait.timeout must not be negative"))
	}
	if c.Wait.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("wait.poll_interval must be a positive duration"))
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format))
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		errs = append(errs, fmt.Errorf("browser window size must not be negative"))
	}
	return multierr.Combine(errs...)
}

// PolicySettings returns the wait defaults for a policy registry. Poll
// intervals below policy.MinPollInterval are clamped.
func (c *Config) PolicySettings() policy.Settings {
	return policy.Settings{
		PollInterval: c.Wait.PollInterval,
		Timeout:      c.Wait.Timeout,
	}.Normalize()
}
