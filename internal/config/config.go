// Package config loads taintsentry settings from a YAML file and
// TAINTSENTRY_* environment variables.
//
// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/3leaps/taintsentry/internal/parser"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = ".taintsentry"

// EnvPrefix prefixes environment overrides (TAINTSENTRY_SCAN_WORKERS).
const EnvPrefix = "TAINTSENTRY"

// Config is the full taintsentry configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// LoggerConfig controls diagnostic logging. Reports never go through the
// logger.
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

// ScanConfig controls batch scans.
type ScanConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Exclude      []string      `mapstructure:"exclude" yaml:"exclude"`
	MaxFileSize  int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	Language     string        `mapstructure:"language" yaml:"language"`
	ShellDialect string        `mapstructure:"shell_dialect" yaml:"shell_dialect"`
}

// CatalogConfig points at a custom catalog file and its signing key.
type CatalogConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Pubkey string `mapstructure:"pubkey" yaml:"pubkey"`
}

// OutputConfig selects the report format.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Color  bool   `mapstructure:"color" yaml:"color"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "taintsentry")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", false)

	// -- Scan --
	v.SetDefault("scan.workers", 4)
	v.SetDefault("scan.timeout", "5m")
	v.SetDefault("scan.exclude", []string{".git", "node_modules", "vendor", "__pycache__", ".venv"})
	v.SetDefault("scan.max_file_size", 5*1024*1024)
	v.SetDefault("scan.language", "")
	v.SetDefault("scan.shell_dialect", "auto")

	// -- Catalog --
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.pubkey", "")

	// -- Output --
	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", true)
	v.SetDefault("output.path", "")
}

// NewDefaultConfig returns the configuration with only defaults applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Load reads the config file at path into v, or .taintsentry.yaml from the
// working directory when path is empty. A missing default file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates the settings held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be a positive integer")
	}
	if c.Scan.Timeout < 0 {
		return fmt.Errorf("scan.timeout must not be negative")
	}
	if c.Scan.MaxFileSize <= 0 {
		return fmt.Errorf("scan.max_file_size must be a positive integer")
	}
	if _, err := parser.ParseDialect(c.Scan.ShellDialect); err != nil {
		return fmt.Errorf("scan.shell_dialect: %w", err)
	}
	switch c.Output.Format {
	case "text", "json", "sarif":
	default:
		return fmt.Errorf("output.format must be one of text, json, sarif (got %q)", c.Output.Format)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json (got %q)", c.Logger.Format)
	}
	if c.Catalog.Pubkey != "" && c.Catalog.Path == "" {
		return fmt.Errorf("catalog.pubkey requires catalog.path")
	}
	return nil
}
