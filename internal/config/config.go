package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/pricesplit/internal/id"
)

// FileName is the config file looked up in the working directory.
const FileName = "pricesplit.yaml"

// Config represents the top-level pricesplit.yaml configuration.
type Config struct {
	// Currency is applied to snapshots that carry none.
	Currency  string         `yaml:"currency" env:"PRICESPLIT_CURRENCY"`
	LogLevel  string         `yaml:"log_level" env:"PRICESPLIT_LOG_LEVEL"`
	AuditPath string         `yaml:"audit_path,omitempty" env:"PRICESPLIT_AUDIT_PATH"`
	Resolver  ResolverConfig `yaml:"resolver"`
}

// ResolverConfig tunes fuzzy bill-id resolution.
type ResolverConfig struct {
	Prefixes       []string `yaml:"prefixes" env:"PRICESPLIT_PREFIXES" envSeparator:","`
	MinMatchLength int      `yaml:"min_match_length" env:"PRICESPLIT_MIN_MATCH_LENGTH"`
}

// Load reads a pricesplit.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when path does not exist.
// Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any PRICESPLIT_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Currency: "USD",
		LogLevel: "info",
		Resolver: ResolverConfig{
			Prefixes: append([]string(nil), id.DefaultPrefixes...),
		},
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Currency) == "" {
		errs = append(errs, errors.New("currency: must not be empty"))
	}
	if c.Resolver.MinMatchLength < 0 {
		errs = append(errs, fmt.Errorf("resolver.min_match_length: must not be negative, got %d", c.Resolver.MinMatchLength))
	}
	if len(c.Resolver.Prefixes) == 0 {
		errs = append(errs, errors.New("resolver.prefixes: at least one prefix is required"))
	}
	return errors.Join(errs...)
}
