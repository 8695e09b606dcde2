package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Values are resolved once
// at startup from defaults, an optional YAML file and PHOENIX_* environment
// variables, in that order of precedence.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Registry    RegistryConfig    `mapstructure:"registry" yaml:"registry"`
	RecordStore RecordStoreConfig `mapstructure:"recordstore" yaml:"recordstore"`
	Scan        ScanConfig        `mapstructure:"scan" yaml:"scan"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
}

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

// RegistryConfig configures the company registry client.
type RegistryConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// APIKey is sent as the HTTP Basic username with an empty password.
	// It is only ever read from the PHOENIX_REGISTRY_API_KEY environment
	// variable and is never written to logs or serialized output.
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// RateLimit caps outbound requests per second; RateBurst allows short
	// bursts above the sustained rate. The upstream enforces a per-key quota.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// RecordStoreConfig configures the bulk dataset store client. The store is a
// PostgREST-style HTTP API; exact row counts arrive in the Content-Range
// response header.
type RecordStoreConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// RiskColumn names the column holding the per-record risk bucket. It is
	// explicit configuration: when empty, bucket filters and statistics fail
	// closed to empty results instead of guessing a column at runtime.
	RiskColumn string `mapstructure:"risk_column" yaml:"risk_column"`

	// SearchColumns is the bounded set of columns a free-text filter touches.
	SearchColumns []string `mapstructure:"search_columns" yaml:"search_columns"`

	PerPage     int           `mapstructure:"per_page" yaml:"per_page"`
	MaxSafePage int           `mapstructure:"max_safe_page" yaml:"max_safe_page"`
	StatsTTL    time.Duration `mapstructure:"stats_ttl" yaml:"stats_ttl"`
}

// ScanConfig tunes the deep scan orchestrator.
type ScanConfig struct {
	// Concurrency bounds simultaneous registry searches during a scan.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// RecentFormationWindowDays is the lookback window for counting an
	// officer's recently formed companies.
	RecentFormationWindowDays int `mapstructure:"recent_formation_window_days" yaml:"recent_formation_window_days"`

	// Output/Format get their marching orders from CLI flags, not the config file.
	Output string `mapstructure:"-" yaml:"-"`
	Format string `mapstructure:"-" yaml:"-"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "phoenixing")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Registry --
	v.SetDefault("registry.base_url", "https://api.company-information.service.gov.uk")
	v.SetDefault("registry.request_timeout", "30s")
	v.SetDefault("registry.rate_limit", 5.0)
	v.SetDefault("registry.rate_burst", 5)

	// -- Record store --
	v.SetDefault("recordstore.base_url", "")
	v.SetDefault("recordstore.request_timeout", "30s")
	v.SetDefault("recordstore.risk_column", "risk_percentage")
	v.SetDefault("recordstore.search_columns", []string{
		"company_name", "company_number", "reg_address_post_code", "company_status", "risk_percentage",
	})
	v.SetDefault("recordstore.per_page", 100)
	v.SetDefault("recordstore.max_safe_page", 10000)
	v.SetDefault("recordstore.stats_ttl", "5m")

	// -- Scan --
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.recent_formation_window_days", 730)

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// NewFromViper creates and validates a configuration from a viper instance.
func NewFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for credentials. These never live in files.
	v.BindEnv("registry.api_key", "PHOENIX_REGISTRY_API_KEY")
	v.BindEnv("recordstore.api_key", "PHOENIX_RECORDSTORE_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated purely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with static defaults, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url is required")
	}
	if c.Registry.RateLimit <= 0 {
		return fmt.Errorf("registry.rate_limit must be positive")
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be a positive integer")
	}
	if c.Scan.RecentFormationWindowDays <= 0 {
		return fmt.Errorf("scan.recent_formation_window_days must be a positive integer")
	}
	if c.RecordStore.PerPage <= 0 {
		return fmt.Errorf("recordstore.per_page must be a positive integer")
	}
	if c.RecordStore.MaxSafePage <= 0 {
		return fmt.Errorf("recordstore.max_safe_page must be a positive integer")
	}
	if c.RecordStore.StatsTTL <= 0 {
		return fmt.Errorf("recordstore.stats_ttl must be a positive duration")
	}
	return nil
}
