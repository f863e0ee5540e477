// internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // console or json
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// EngineConfig tunes the execution loop. The stall threshold and attempt
// budget are deliberately configurable rather than hard constants.
type EngineConfig struct {
	MaxSteps          int           `mapstructure:"max_steps" yaml:"max_steps"`
	StallThreshold    int           `mapstructure:"stall_threshold" yaml:"stall_threshold"`
	GoalAttemptBudget int           `mapstructure:"goal_attempt_budget" yaml:"goal_attempt_budget"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	HistoryWindow     int           `mapstructure:"history_window" yaml:"history_window"`
	MaxElements       int           `mapstructure:"max_elements" yaml:"max_elements"`
	AnnotateTimeout   time.Duration `mapstructure:"annotate_timeout" yaml:"annotate_timeout"`
}

// ProviderConfig defines the vision decision provider (Gemini) settings.
type ProviderConfig struct {
	Model          string        `mapstructure:"model" yaml:"model"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout     time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	MaxInFlight    int64         `mapstructure:"max_in_flight" yaml:"max_in_flight"`
}

// RecorderConfig selects and configures the step trace backend.
type RecorderConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // file or postgres
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url"`
}

// RunnerConfig bounds concurrent task execution.
type RunnerConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webpilot")
	v.SetDefault("logger.log_file", "webpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "15s")
	v.SetDefault("browser.viewport_width", 1440)
	v.SetDefault("browser.viewport_height", 900)

	// -- Engine --
	v.SetDefault("engine.max_steps", 40)
	v.SetDefault("engine.stall_threshold", 3)
	v.SetDefault("engine.goal_attempt_budget", 8)
	v.SetDefault("engine.settle_delay", "1500ms")
	v.SetDefault("engine.history_window", 5)
	v.SetDefault("engine.max_elements", 40)
	v.SetDefault("engine.annotate_timeout", "20s")

	// -- Provider --
	v.SetDefault("provider.model", "gemini-2.5-flash")
	v.SetDefault("provider.api_timeout", "30s")
	v.SetDefault("provider.temperature", 0.2)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("provider.max_attempts", 4)
	v.SetDefault("provider.base_delay", "1s")
	v.SetDefault("provider.requests_per_sec", 1.0)
	v.SetDefault("provider.max_in_flight", 2)

	// -- Recorder --
	v.SetDefault("recorder.backend", "file")
	v.SetDefault("recorder.output_dir", "dataset")

	// -- Runner --
	v.SetDefault("runner.concurrency", 2)
}

// NewDefaultConfig creates a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance that has already read its sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment, never the config file.
	v.BindEnv("provider.api_key", "WEBPILOT_GEMINI_API_KEY")
	v.BindEnv("recorder.postgres_url", "WEBPILOT_POSTGRES_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves "~" in user-supplied paths.
func (c *Config) expandPaths() error {
	if strings.HasPrefix(c.Recorder.OutputDir, "~") {
		expanded, err := homedir.Expand(c.Recorder.OutputDir)
		if err != nil {
			return fmt.Errorf("cannot expand recorder.output_dir: %w", err)
		}
		c.Recorder.OutputDir = filepath.Clean(expanded)
	}
	return nil
}

// Validate checks required fields and sane ranges.
func (c *Config) Validate() error {
	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be a positive integer")
	}
	if c.Engine.StallThreshold <= 0 {
		return fmt.Errorf("engine.stall_threshold must be a positive integer")
	}
	if c.Engine.GoalAttemptBudget <= 0 {
		return fmt.Errorf("engine.goal_attempt_budget must be a positive integer")
	}
	if c.Provider.MaxAttempts <= 0 {
		return fmt.Errorf("provider.max_attempts must be a positive integer")
	}
	if c.Provider.MaxInFlight <= 0 {
		return fmt.Errorf("provider.max_in_flight must be a positive integer")
	}
	if c.Runner.Concurrency <= 0 {
		return fmt.Errorf("runner.concurrency must be a positive integer")
	}
	switch c.Recorder.Backend {
	case "file":
		if c.Recorder.OutputDir == "" {
			return fmt.Errorf("recorder.output_dir is required for the file backend")
		}
	case "postgres":
		if c.Recorder.PostgresURL == "" {
			return fmt.Errorf("recorder.postgres_url is required for the postgres backend. Set WEBPILOT_POSTGRES_URL")
		}
	default:
		return fmt.Errorf("recorder.backend must be file or postgres, got %q", c.Recorder.Backend)
	}
	return nil
}
