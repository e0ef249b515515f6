// Package config provides YAML-based configuration loading for the accelite
// command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/anirudhraja/accelite/compress"
	"github.com/anirudhraja/accelite/wire"
)

// Config is the root CLI configuration.
type Config struct {
	// Output is the default output format: table, json or yaml
	Output string `mapstructure:"output"`

	// SchemaPath is searched for .proto files when a command needs a schema
	SchemaPath string `mapstructure:"schema_path"`

	// Stream holds the settings new streams are written with
	Stream StreamConfig `mapstructure:"stream"`

	// Decode holds schema decode options
	Decode wire.DecodeOptions `mapstructure:"decode"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`
}

// StreamConfig selects the config byte and envelope compression used when
// encoding and packing.
type StreamConfig struct {
	// Encoding: utf8, utf16 or ascii
	Encoding string `mapstructure:"encoding"`
	// ByteOrder: little or big
	ByteOrder string `mapstructure:"byte_order"`
	// Compression: none, zstd, s2 or lz4
	Compression string `mapstructure:"compression"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with defaults. Logs go to stderr so
// they never mix with command output.
func Default() *Config {
	return &Config{
		Output: "table",
		Stream: StreamConfig{
			Encoding:    "utf8",
			ByteOrder:   "little",
			Compression: "none",
		},
		Log: LogConfig{
			Level:   "warn",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/accelite.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix ACCELITE and `.`/`-` are replaced with `_`.
// Example: ACCELITE_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ACCELITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("output", cfg.Output)
	v.SetDefault("schema_path", cfg.SchemaPath)
	v.SetDefault("stream.encoding", cfg.Stream.Encoding)
	v.SetDefault("stream.byte_order", cfg.Stream.ByteOrder)
	v.SetDefault("stream.compression", cfg.Stream.Compression)
	v.SetDefault("decode.strict_unknown_fields", cfg.Decode.StrictUnknownFields)
	v.SetDefault("decode.populate_defaults", cfg.Decode.PopulateDefaults)
	v.SetDefault("decode.preserve_unknown", cfg.Decode.PreserveUnknown)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("ACCELITE_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("accelite")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".accelite"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if c.Output == "" {
		c.Output = "table"
	}

	if _, err := c.WireConfig(); err != nil {
		return err
	}
	if _, err := c.Compression(); err != nil {
		return fmt.Errorf("invalid stream.compression: %w", err)
	}
	return nil
}

// WireConfig converts the stream settings into a wire.Config.
func (c *Config) WireConfig() (wire.Config, error) {
	var wc wire.Config

	switch strings.ToLower(strings.TrimSpace(c.Stream.Encoding)) {
	case "", "utf8", "utf-8":
		wc.Encoding = wire.EncodingUTF8
	case "utf16", "utf-16":
		wc.Encoding = wire.EncodingUTF16
	case "ascii":
		wc.Encoding = wire.EncodingASCII
	default:
		return wc, fmt.Errorf("invalid stream.encoding: %q", c.Stream.Encoding)
	}

	switch strings.ToLower(strings.TrimSpace(c.Stream.ByteOrder)) {
	case "", "little", "le":
		wc.Order = wire.LittleEndian
	case "big", "be":
		wc.Order = wire.BigEndian
	default:
		return wc, fmt.Errorf("invalid stream.byte_order: %q", c.Stream.ByteOrder)
	}

	return wc, nil
}

// Compression returns the configured envelope compression.
func (c *Config) Compression() (compress.Type, error) {
	return compress.ParseType(c.Stream.Compression)
}
