package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/joshharrison/pertloom/internal/source"
	"github.com/joshharrison/pertloom/internal/table"
)

// S3Config holds settings for s3:// task tables.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// SQLConfig holds settings for postgres:// task tables.
type SQLConfig struct {
	Query string `mapstructure:"query"`
}

// ServeConfig holds settings for the HTTP viewer.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config holds all runtime configuration for a pertloom invocation.
// Values are populated from .pertloom.yaml, PERTLOOM_* env vars, and CLI flags.
type Config struct {
	Sentinel    string      `mapstructure:"sentinel"`
	InputFormat string      `mapstructure:"input_format"`
	Format      string      `mapstructure:"format"`
	NoColor     bool        `mapstructure:"no_color"`
	LogLevel    string      `mapstructure:"log_level"`
	S3          S3Config    `mapstructure:"s3"`
	SQL         SQLConfig   `mapstructure:"sql"`
	Serve       ServeConfig `mapstructure:"serve"`
	Watch       WatchConfig `mapstructure:"watch"`
}

// OutputFormats lists the report formats the CLI can write.
var OutputFormats = []string{"text", "json", "toml", "csv", "dot", "ascii"}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sentinel", table.DefaultSentinel)
	v.SetDefault("input_format", string(source.FormatAuto))
	v.SetDefault("format", "text")
	v.SetDefault("no_color", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("sql.query", source.DefaultQuery)
	v.SetDefault("serve.addr", ":7171")
	v.SetDefault("watch.debounce", "200ms")
}

// Load reads configuration from v, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no command can work with.
func (c Config) Validate() error {
	if c.Sentinel == "" {
		return fmt.Errorf("config: sentinel must not be empty")
	}
	switch source.Format(c.InputFormat) {
	case source.FormatAuto, source.FormatCSV, source.FormatJSON:
	default:
		return fmt.Errorf("config: unknown input_format %q (use auto, csv or json)", c.InputFormat)
	}
	known := false
	for _, f := range OutputFormats {
		if c.Format == f {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("config: watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	return nil
}

// SourceConfig maps the configuration onto source.Config.
func (c Config) SourceConfig() source.Config {
	return source.Config{
		Sentinel: c.Sentinel,
		Format:   source.Format(c.InputFormat),
		SQLQuery: c.SQL.Query,
		S3: source.S3Config{
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			PathStyle:       c.S3.PathStyle,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
		},
	}
}
