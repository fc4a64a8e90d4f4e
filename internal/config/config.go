// Package config loads and validates the netsweep configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/netsweep/internal/db"
	"github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/profiles"
)

const (
	configDirPerm  = 0755
	configFilePerm = 0644

	defaultMaxCandidates = 1000
	defaultLookupTimeout = 2 * time.Second
)

// Liveness backends.
const (
	LivenessExec = "exec"
	LivenessICMP = "icmp"
	LivenessNmap = "nmap"
)

// Config represents the complete netsweep configuration.
type Config struct {
	Scanning ScanningConfig `yaml:"scanning" json:"scanning" mapstructure:"scanning"`
	Logging  logging.Config `yaml:"logging" json:"logging" mapstructure:"logging"`
	Database DatabaseConfig `yaml:"database" json:"database" mapstructure:"database"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Export   ExportConfig   `yaml:"export" json:"export" mapstructure:"export"`
}

// ScanningConfig holds scanning-related settings.
type ScanningConfig struct {
	// Which liveness probe backend to use (exec, icmp, nmap).
	LivenessMethod string `yaml:"liveness_method" json:"liveness_method" mapstructure:"liveness_method" validate:"oneof=exec icmp nmap"`

	// Candidate addresses beyond this count are dropped, in address order.
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates" mapstructure:"max_candidates" validate:"gte=1"`

	// Bound for reverse DNS and ARP lookups.
	LookupTimeout time.Duration `yaml:"lookup_timeout" json:"lookup_timeout" mapstructure:"lookup_timeout" validate:"gt=0"`

	// Optional host:port of a DNS server for PTR lookups.
	DNSServer string `yaml:"dns_server" json:"dns_server" mapstructure:"dns_server" validate:"omitempty,hostname_port"`

	// Per-profile overrides keyed by profile name.
	Profiles map[string]profiles.Override `yaml:"profiles" json:"profiles" mapstructure:"profiles" validate:"dive"`
}

// DatabaseConfig enables optional persistence of finished scans.
type DatabaseConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	db.Config `yaml:",inline" mapstructure:",squash"`
}

// MetricsConfig controls the Prometheus textfile dump.
type MetricsConfig struct {
	// Path written after each scan; empty disables the dump.
	Textfile string `yaml:"textfile" json:"textfile" mapstructure:"textfile"`
}

// ExportConfig controls where exported reports are written.
type ExportConfig struct {
	Directory string `yaml:"directory" json:"directory" mapstructure:"directory"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			LivenessMethod: LivenessExec,
			MaxCandidates:  defaultMaxCandidates,
			LookupTimeout:  defaultLookupTimeout,
		},
		Logging: logging.DefaultConfig(),
		Database: DatabaseConfig{
			Enabled: false,
			Config:  db.DefaultConfig(),
		},
		Export: ExportConfig{
			Directory: ".",
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// yaml.v3 also accepts JSON documents.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse %s config", strings.TrimPrefix(filepath.Ext(path), ".")), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return errors.ErrConfigInvalid(first.Namespace(), first.Value())
		}
		return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
	}

	for name, override := range c.Scanning.Profiles {
		base, err := profiles.Lookup(name)
		if err != nil {
			return errors.ErrConfigInvalid("scanning.profiles."+name, name)
		}
		if _, err := base.With(override); err != nil {
			return errors.WrapConfigError(errors.CodeValidation, "invalid profile override", err)
		}
	}

	if c.Database.Enabled {
		if c.Database.Database == "" {
			return errors.ErrConfigInvalid("database.database", c.Database.Database)
		}
		if c.Database.Username == "" {
			return errors.ErrConfigInvalid("database.username", c.Database.Username)
		}
	}

	return nil
}

// Profile resolves a built-in profile with any configured override applied.
func (c *Config) Profile(name string) (profiles.Profile, error) {
	base, err := profiles.Lookup(name)
	if err != nil {
		return profiles.Profile{}, err
	}
	override, ok := c.Scanning.Profiles[base.Name]
	if !ok {
		return base, nil
	}
	return base.With(override)
}
