// Package config handles netsweep configuration: the application settings
// file, the network topology provided by the external configuration
// provider, and the derived sweep plan consumed by the orchestrator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
)

const (
	// defaultInterfacePattern selects LAN-facing interfaces by name.
	defaultInterfacePattern = "lan"

	// defaultWorkers keeps the sweep to one scan engine invocation at a
	// time.
	defaultWorkers = 1
)

// Config represents the complete netsweep configuration.
type Config struct {
	// Engine configures the external scan engine invocation.
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Sweep configures the phase orchestrator.
	Sweep SweepConfig `yaml:"sweep" json:"sweep"`

	// Report configures the signing and queueing pipeline.
	Report ReportConfig `yaml:"report" json:"report"`

	// Logging configuration.
	Logging logging.Config `yaml:"logging" json:"logging"`
}

// EngineConfig holds scan engine settings.
type EngineConfig struct {
	// Path to the scan engine binary.
	Path string `yaml:"path" json:"path" validate:"required"`

	// TempDir is where per-invocation output files live. Empty means the
	// system default.
	TempDir string `yaml:"temp_dir" json:"temp_dir"`

	// TimeoutSec bounds a single engine invocation in seconds
	// (0 = no orchestrator-side timeout).
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec" validate:"gte=0"`
}

// Timeout returns the per-invocation timeout as a duration.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// SweepConfig holds sweep orchestration settings.
type SweepConfig struct {
	// NetworkConfigFile is the topology file from the external
	// configuration provider.
	NetworkConfigFile string `yaml:"network_config_file" json:"network_config_file" validate:"required"`

	// InterfacePattern selects interfaces to sweep by name substring.
	InterfacePattern string `yaml:"interface_pattern" json:"interface_pattern" validate:"required"`

	// Workers bounds within-phase concurrency. 1 keeps the sweep strictly
	// sequential.
	Workers int `yaml:"workers" json:"workers" validate:"gte=1"`

	// BlacklistedHosts are addresses excluded from in-depth scanning.
	BlacklistedHosts []string `yaml:"blacklisted_hosts" json:"blacklisted_hosts" validate:"dive,ip"`
}

// ReportConfig holds reporting pipeline settings.
type ReportConfig struct {
	// QueueDir is the outgoing spool directory for signed reports.
	QueueDir string `yaml:"queue_dir" json:"queue_dir" validate:"required"`

	// Signing configures report signing.
	Signing SigningConfig `yaml:"signing" json:"signing"`

	// ReverseDNS configures optional PTR enrichment of reports.
	ReverseDNS ReverseDNSConfig `yaml:"reverse_dns" json:"reverse_dns"`
}

// SigningConfig holds report signing settings. Exactly one of KeyFile and
// Passphrase should be set; KeyFile wins when both are.
type SigningConfig struct {
	// KeyFile is a base64-encoded ed25519 seed.
	KeyFile string `yaml:"key_file" json:"key_file"`

	// Passphrase derives an HMAC key when no key file is configured.
	Passphrase string `yaml:"passphrase" json:"passphrase"`

	// Salt for the passphrase key derivation.
	Salt string `yaml:"salt" json:"salt"`

	// KeyID labels signatures for downstream verification.
	KeyID string `yaml:"key_id" json:"key_id"`
}

// ReverseDNSConfig holds optional reverse-DNS enrichment settings.
type ReverseDNSConfig struct {
	// Enabled turns PTR lookups on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Resolver is the DNS server to query, host:port.
	Resolver string `yaml:"resolver" json:"resolver"`

	// TimeoutSec per lookup.
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec" validate:"gte=0"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Path:       "nmap",
			TempDir:    "",
			TimeoutSec: 0,
		},
		Sweep: SweepConfig{
			NetworkConfigFile: "/etc/netsweep/network_config.yml",
			InterfacePattern:  defaultInterfacePattern,
			Workers:           defaultWorkers,
			BlacklistedHosts:  nil,
		},
		Report: ReportConfig{
			QueueDir: "/var/spool/netsweep/outgoing",
			ReverseDNS: ReverseDNSConfig{
				Enabled:    false,
				Resolver:   "",
				TimeoutSec: 3,
			},
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // Defaults only when no config file exists.
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"failed to parse YAML config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.WrapConfigError(errors.CodeFileCreate,
			"failed to create config directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"failed to marshal config", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("invalid value (rule %q)", first.Tag()), first.Namespace())
		}
		return errors.WrapConfigError(errors.CodeValidation, "configuration validation failed", err)
	}

	if c.Report.Signing.KeyFile == "" && c.Report.Signing.Passphrase == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"report signing requires a key file or a passphrase", "report.signing")
	}
	if c.Report.ReverseDNS.Enabled && c.Report.ReverseDNS.Resolver == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"reverse DNS enrichment requires a resolver address", "report.reverse_dns.resolver")
	}
	return nil
}
