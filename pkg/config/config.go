// Package config aggregates the agent configuration from defaults, cobra
// flags, a YAML file and environment variables, and validates it at load
// time so the collection pipeline never sees a malformed item.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/probe-agent/pkg/logger"
)

var valid = validator.New()

// Config is the root of the agent configuration.
type Config struct {
	General   GeneralConfig   `yaml:"general" mapstructure:"general"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Log       logger.Config   `yaml:"log" mapstructure:"log"`
	Bus       BusConfig       `yaml:"bus" mapstructure:"bus"`
	Items     []ItemConfig    `yaml:"items" mapstructure:"items" validate:"dive"`
	Outputs   []OutputConfig  `yaml:"outputs" mapstructure:"outputs" validate:"dive"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// Shell is the interpreter used for shell items.
	Shell string `yaml:"shell" mapstructure:"shell" validate:"required"`
}

// TelemetryConfig configures the agent's own /metrics endpoint.
type TelemetryConfig struct {
	Enable bool   `yaml:"enable" mapstructure:"enable"`
	Addr   string `yaml:"addr" mapstructure:"addr" validate:"required_if=Enable true,omitempty,hostname_port"`
}

// BusConfig bounds the result bus.
type BusConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity" validate:"gt=0"`
}

// ItemConfig is one scheduled collection unit.
type ItemConfig struct {
	Key string `yaml:"key" mapstructure:"key" validate:"required"`
	// Interval is the collection period in seconds; zero is rejected.
	Interval int               `yaml:"interval" mapstructure:"interval" validate:"required,gt=0"`
	Env      map[string]string `yaml:"env" mapstructure:"env"`
	Input    SourceConfig      `yaml:"input" mapstructure:"input"`
	Digest   DigestConfig      `yaml:"digest" mapstructure:"digest"`
}

// SourceConfig is the tagged source variant.
type SourceConfig struct {
	Type   string   `yaml:"type" mapstructure:"type" validate:"required,oneof=file command shell"`
	Path   string   `yaml:"path" mapstructure:"path"`
	Args   []string `yaml:"args" mapstructure:"args"`
	Script string   `yaml:"script" mapstructure:"script"`
}

// DigestConfig is the tagged digest variant. An empty type means raw.
type DigestConfig struct {
	Type  string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=raw regex monitoring-plugin"`
	Regex string `yaml:"regex" mapstructure:"regex"`
}

// OutputConfig is the tagged output-sink variant.
type OutputConfig struct {
	Type string `yaml:"type" mapstructure:"type" validate:"required,oneof=file influxdb"`

	// file
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	// influxdb
	URL              string `yaml:"url" mapstructure:"url"`
	Database         string `yaml:"database" mapstructure:"database"`
	Username         string `yaml:"username" mapstructure:"username"`
	Password         string `yaml:"password" mapstructure:"password"`
	UseRawAsFallback bool   `yaml:"use_raw_as_fallback" mapstructure:"use_raw_as_fallback"`

	// common
	AlwaysWriteRaw bool `yaml:"always_write_raw" mapstructure:"always_write_raw"`
}

// NewDefaultConfig returns a configuration that runs with no items and a
// file output, mirroring a fresh install.
func NewDefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{Shell: "/bin/sh"},
		Telemetry: TelemetryConfig{
			Enable: false,
			Addr:   "127.0.0.1:9090",
		},
		Log: logger.Config{
			Level:  "info",
			Path:   "./logs",
			MaxAge: 7,
		},
		Bus: BusConfig{Capacity: 100},
		Outputs: []OutputConfig{
			{Type: "file", BasePath: "/var/log/probe-agent"},
		},
	}
}

// Load merges flags, the --config YAML file and environment variables over
// the defaults, then validates.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix("PROBE_AGENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and validates a single YAML file with no flag or env
// layering. Used by tests and config checks.
func LoadFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decode(settings map[string]any, cfg *Config) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
