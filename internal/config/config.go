// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Platform() PlatformConfig
	Digest() DigestConfig
	Pagination() PaginationConfig
	Refresh() RefreshConfig
	Relay() RelayConfig

	// CLI flag overrides
	SetLoggerLevel(string)
	SetPlatformMode(string)
	SetEnginePollInterval(time.Duration)
}

// Config holds the entire application configuration. Fields are exported for
// viper unmarshaling; access goes through the Interface getters.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	EngineCfg     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	PlatformCfg   PlatformConfig   `mapstructure:"platform" yaml:"platform"`
	DigestCfg     DigestConfig     `mapstructure:"digest" yaml:"digest"`
	PaginationCfg PaginationConfig `mapstructure:"pagination" yaml:"pagination"`
	RefreshCfg    RefreshConfig    `mapstructure:"refresh" yaml:"refresh"`
	RelayCfg      RelayConfig      `mapstructure:"relay" yaml:"relay"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig         { return c.EngineCfg }
func (c *Config) Platform() PlatformConfig     { return c.PlatformCfg }
func (c *Config) Digest() DigestConfig         { return c.DigestCfg }
func (c *Config) Pagination() PaginationConfig { return c.PaginationCfg }
func (c *Config) Refresh() RefreshConfig       { return c.RefreshCfg }
func (c *Config) Relay() RelayConfig           { return c.RelayCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetLoggerLevel(level string)           { c.LoggerCfg.Level = level }
func (c *Config) SetPlatformMode(mode string)           { c.PlatformCfg.Mode = mode }
func (c *Config) SetEnginePollInterval(d time.Duration) { c.EngineCfg.PollInterval = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig drives the sampling and publishing loop.
type EngineConfig struct {
	// PollInterval is the pause between update cycle attempts.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// ErrorPause is the recovery pause after a failed cycle.
	ErrorPause time.Duration `mapstructure:"error_pause" yaml:"error_pause"`
	// CaptureTimeout bounds one screenshot attempt.
	CaptureTimeout time.Duration `mapstructure:"capture_timeout" yaml:"capture_timeout"`
	// ExecutorWorkers sizes the pool that runs blocking OS calls.
	ExecutorWorkers int `mapstructure:"executor_workers" yaml:"executor_workers"`
	ExecutorQueue   int `mapstructure:"executor_queue" yaml:"executor_queue"`
}

// Validate checks the engine loop settings.
func (e *EngineConfig) Validate() error {
	if e.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be a positive duration")
	}
	if e.ErrorPause <= 0 {
		return fmt.Errorf("engine.error_pause must be a positive duration")
	}
	if e.CaptureTimeout <= 0 {
		return fmt.Errorf("engine.capture_timeout must be a positive duration")
	}
	if e.ExecutorWorkers <= 0 {
		return fmt.Errorf("engine.executor_workers must be a positive integer")
	}
	return nil
}

// PlatformConfig selects and tunes the capability providers.
type PlatformConfig struct {
	// Mode selects the provider set: "simulated" or "none".
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Seed makes the simulated desktop reproducible.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
	// WindowCacheTTL is how long enumeration results stay fresh for burst
	// queries. Zero disables the cache.
	WindowCacheTTL time.Duration `mapstructure:"window_cache_ttl" yaml:"window_cache_ttl"`
	ScreenWidth    int           `mapstructure:"screen_width" yaml:"screen_width"`
	ScreenHeight   int           `mapstructure:"screen_height" yaml:"screen_height"`
}

// Validate checks the platform settings.
func (p *PlatformConfig) Validate() error {
	switch p.Mode {
	case "simulated", "none":
	default:
		return fmt.Errorf("platform.mode must be one of: simulated, none (got %q)", p.Mode)
	}
	if p.ScreenWidth <= 0 || p.ScreenHeight <= 0 {
		return fmt.Errorf("platform screen dimensions must be positive")
	}
	if p.WindowCacheTTL < 0 {
		return fmt.Errorf("platform.window_cache_ttl must not be negative")
	}
	return nil
}

// DigestConfig sets the per-category caps and truncation limits for the
// rendered context digest. These are policy defaults, not wire constants.
type DigestConfig struct {
	MaxWindows      int `mapstructure:"max_windows" yaml:"max_windows"`
	MaxButtons      int `mapstructure:"max_buttons" yaml:"max_buttons"`
	MaxLinks        int `mapstructure:"max_links" yaml:"max_links"`
	MaxText         int `mapstructure:"max_text" yaml:"max_text"`
	MaxChildren     int `mapstructure:"max_children" yaml:"max_children"`
	MinTextLength   int `mapstructure:"min_text_length" yaml:"min_text_length"`
	TitleTruncate   int `mapstructure:"title_truncate" yaml:"title_truncate"`
	ValueTruncate   int `mapstructure:"value_truncate" yaml:"value_truncate"`
	MouseTextRadius int `mapstructure:"mouse_text_radius" yaml:"mouse_text_radius"`
}

// Validate checks the digest caps.
func (d *DigestConfig) Validate() error {
	if d.MaxWindows <= 0 || d.MaxButtons <= 0 || d.MaxLinks <= 0 || d.MaxText <= 0 || d.MaxChildren <= 0 {
		return fmt.Errorf("digest section caps must be positive integers")
	}
	if d.TitleTruncate <= 0 || d.ValueTruncate <= 0 {
		return fmt.Errorf("digest truncation limits must be positive integers")
	}
	if d.MinTextLength < 0 {
		return fmt.Errorf("digest.min_text_length must not be negative")
	}
	if d.MouseTextRadius < 0 {
		return fmt.Errorf("digest.mouse_text_radius must not be negative")
	}
	return nil
}

// PaginationConfig bounds the agent-invocable pagination queries.
type PaginationConfig struct {
	TextLimitDefault   int `mapstructure:"text_limit_default" yaml:"text_limit_default"`
	TextLimitMax       int `mapstructure:"text_limit_max" yaml:"text_limit_max"`
	WindowLimitDefault int `mapstructure:"window_limit_default" yaml:"window_limit_default"`
	WindowLimitMax     int `mapstructure:"window_limit_max" yaml:"window_limit_max"`
}

// Validate checks the pagination bounds.
func (p *PaginationConfig) Validate() error {
	if p.TextLimitMax < 1 || p.WindowLimitMax < 1 {
		return fmt.Errorf("pagination limit maxima must be at least 1")
	}
	if p.TextLimitDefault < 1 || p.TextLimitDefault > p.TextLimitMax {
		return fmt.Errorf("pagination.text_limit_default must be within [1, %d]", p.TextLimitMax)
	}
	if p.WindowLimitDefault < 1 || p.WindowLimitDefault > p.WindowLimitMax {
		return fmt.Errorf("pagination.window_limit_default must be within [1, %d]", p.WindowLimitMax)
	}
	return nil
}

// RefreshConfig bounds the forced-refresh request parameters.
type RefreshConfig struct {
	MaxItemsDefault int `mapstructure:"max_items_default" yaml:"max_items_default"`
	MaxItemsMin     int `mapstructure:"max_items_min" yaml:"max_items_min"`
	MaxItemsMax     int `mapstructure:"max_items_max" yaml:"max_items_max"`
}

// Validate checks the refresh bounds.
func (r *RefreshConfig) Validate() error {
	if r.MaxItemsMin < 1 || r.MaxItemsMax < r.MaxItemsMin {
		return fmt.Errorf("refresh.max_items bounds are inverted")
	}
	if r.MaxItemsDefault < r.MaxItemsMin || r.MaxItemsDefault > r.MaxItemsMax {
		return fmt.Errorf("refresh.max_items_default must be within [%d, %d]", r.MaxItemsMin, r.MaxItemsMax)
	}
	return nil
}

// RelayConfig holds the connection settings for both remote peers: the agent
// backend (persistent) and the automation server (dialed per action).
type RelayConfig struct {
	BackendURL    string `mapstructure:"backend_url" yaml:"backend_url"`
	AutomationURL string `mapstructure:"automation_url" yaml:"automation_url"`
	Token         string `mapstructure:"token" yaml:"-"`
	AppName       string `mapstructure:"app_name" yaml:"app_name"`

	OutboundQueue     int           `mapstructure:"outbound_queue" yaml:"outbound_queue"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout" yaml:"pong_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	StatsInterval     time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`
}

// Validate checks the relay settings.
func (r *RelayConfig) Validate() error {
	if r.BackendURL == "" {
		return fmt.Errorf("relay.backend_url is a required configuration field")
	}
	if r.AutomationURL == "" {
		return fmt.Errorf("relay.automation_url is a required configuration field")
	}
	if r.AppName == "" {
		return fmt.Errorf("relay.app_name must not be empty")
	}
	if r.OutboundQueue <= 0 {
		return fmt.Errorf("relay.outbound_queue must be a positive integer")
	}
	if r.ReconnectInterval <= 0 || r.DialTimeout <= 0 || r.WriteTimeout <= 0 ||
		r.PongTimeout <= 0 || r.ActionTimeout <= 0 {
		return fmt.Errorf("relay timeouts must be positive durations")
	}
	return nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "neurodesk")
	v.SetDefault("logger.log_file", "neurodesk.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.poll_interval", "2s")
	v.SetDefault("engine.error_pause", "1s")
	v.SetDefault("engine.capture_timeout", "5s")
	v.SetDefault("engine.executor_workers", 2)
	v.SetDefault("engine.executor_queue", 8)

	// -- Platform --
	v.SetDefault("platform.mode", "simulated")
	v.SetDefault("platform.seed", 1337)
	v.SetDefault("platform.window_cache_ttl", "500ms")
	v.SetDefault("platform.screen_width", 1920)
	v.SetDefault("platform.screen_height", 1080)

	// -- Digest --
	v.SetDefault("digest.max_windows", 10)
	v.SetDefault("digest.max_buttons", 10)
	v.SetDefault("digest.max_links", 5)
	v.SetDefault("digest.max_text", 10)
	v.SetDefault("digest.max_children", 5)
	v.SetDefault("digest.min_text_length", 3)
	v.SetDefault("digest.title_truncate", 60)
	v.SetDefault("digest.value_truncate", 50)
	v.SetDefault("digest.mouse_text_radius", 100)

	// -- Pagination --
	v.SetDefault("pagination.text_limit_default", 50)
	v.SetDefault("pagination.text_limit_max", 100)
	v.SetDefault("pagination.window_limit_default", 20)
	v.SetDefault("pagination.window_limit_max", 50)

	// -- Refresh --
	v.SetDefault("refresh.max_items_default", 15)
	v.SetDefault("refresh.max_items_min", 5)
	v.SetDefault("refresh.max_items_max", 500)

	// -- Relay --
	v.SetDefault("relay.backend_url", "ws://127.0.0.1:8000")
	v.SetDefault("relay.automation_url", "ws://127.0.0.1:8765")
	// Matches the automation server's out-of-box token; override via
	// NEURODESK_RELAY_TOKEN in any real deployment.
	v.SetDefault("relay.token", "super-secret-token")
	v.SetDefault("relay.app_name", "NeuroDesk")
	v.SetDefault("relay.outbound_queue", 64)
	v.SetDefault("relay.reconnect_interval", "5s")
	v.SetDefault("relay.dial_timeout", "10s")
	v.SetDefault("relay.write_timeout", "10s")
	v.SetDefault("relay.pong_timeout", "60s")
	v.SetDefault("relay.action_timeout", "30s")
	v.SetDefault("relay.stats_interval", "60s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("relay.token", "NEURODESK_RELAY_TOKEN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the token if Unmarshal didn't pick it up
	if cfg.RelayCfg.Token == "" {
		cfg.RelayCfg.Token = os.Getenv("NEURODESK_RELAY_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.EngineCfg.Validate(); err != nil {
		return err
	}
	if err := c.PlatformCfg.Validate(); err != nil {
		return err
	}
	if err := c.DigestCfg.Validate(); err != nil {
		return err
	}
	if err := c.PaginationCfg.Validate(); err != nil {
		return err
	}
	if err := c.RefreshCfg.Validate(); err != nil {
		return err
	}
	if err := c.RelayCfg.Validate(); err != nil {
		return err
	}
	return nil
}
