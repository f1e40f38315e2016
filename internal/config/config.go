// Package config loads the single configuration struct spec §6 describes,
// following the teacher's viper-backed layering (defaults, then a YAML
// file, then environment overrides) but rejecting unknown keys outright
// rather than silently ignoring them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig parameterizes whichever kanban backend internal/provider
// selects (spec §6 provider: one of {planka, github, linear, in-memory}).
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	BoardID string `mapstructure:"board_id"`
}

// DatabaseConfig selects and parameterizes the sql persistence backend
// (internal/db/registry.go auto-detects sqlite vs turso from Backend/URL).
type DatabaseConfig struct {
	Backend       string `mapstructure:"backend"`
	URL           string `mapstructure:"url"`
	AuthTokenFile string `mapstructure:"auth_token_file"`
}

// Validate checks that the database config is usable before a connection
// is attempted.
func (c DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	return nil
}

// Config is the single configuration struct every component reads from;
// field names and defaults mirror spec §6's "Configuration options" table.
type Config struct {
	LeaseDuration           time.Duration  `mapstructure:"lease_duration"`
	AssignmentRetryBound    int            `mapstructure:"assignment_retry_bound"`
	AIDeadline              time.Duration  `mapstructure:"ai_deadline"`
	AIConfidenceThreshold   float64        `mapstructure:"ai_confidence_threshold"`
	SweeperInterval         time.Duration  `mapstructure:"sweeper_interval"`
	ReconciliationInterval  time.Duration  `mapstructure:"reconciliation_interval"`
	BottleneckThreshold     int            `mapstructure:"bottleneck_threshold"`
	LongChainDepth          int            `mapstructure:"long_chain_depth"`
	ProgressMonotonicPolicy string         `mapstructure:"progress_monotonic_policy"`
	Provider                string         `mapstructure:"provider"`
	PersistenceBackend      string         `mapstructure:"persistence_backend"`
	Database                DatabaseConfig `mapstructure:"database"`
	ProviderConfig          ProviderConfig `mapstructure:"provider_config"`
}

// Defaults returns the configuration defaults listed in spec §6.
func Defaults() Config {
	return Config{
		LeaseDuration:           5 * time.Minute,
		AssignmentRetryBound:    3,
		AIDeadline:              2 * time.Second,
		AIConfidenceThreshold:   0.6,
		SweeperInterval:         10 * time.Second,
		ReconciliationInterval:  5 * time.Minute,
		BottleneckThreshold:     3,
		LongChainDepth:          6,
		ProgressMonotonicPolicy: "reject",
		Provider:                "in-memory",
		PersistenceBackend:      "embedded-kv",
	}
}

// Load reads defaults, then overlays a YAML file at path (if non-empty)
// and MARCUS_-prefixed environment variables, the way the teacher's
// manager.go layers a viper instance. No key is bound with BindEnv, so an
// environment variable takes effect only for a key the file also sets;
// without a file, environment variables are ignored. Unknown keys in the file
// are rejected with UnmarshalExact rather than silently dropped, since a
// typo'd config key should fail startup, not fail silently at runtime.
func Load(path string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("marcus")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := v.UnmarshalExact(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Provider == "" {
		cfg.Provider = "in-memory"
	}
	if cfg.PersistenceBackend == "" {
		cfg.PersistenceBackend = "embedded-kv"
	}
	return cfg, nil
}

// Validate confirms the chosen provider/backend names are within the
// closed sets spec §6 names.
func (c Config) Validate() error {
	switch c.PersistenceBackend {
	case "embedded-kv", "sql":
	default:
		return fmt.Errorf("persistence_backend must be embedded-kv or sql, got %q", c.PersistenceBackend)
	}
	switch c.Provider {
	case "planka", "github", "linear", "in-memory":
	default:
		return fmt.Errorf("provider must be one of planka, github, linear, in-memory, got %q", c.Provider)
	}
	switch c.ProgressMonotonicPolicy {
	case "reject", "clamp":
	default:
		return fmt.Errorf("progress_monotonic_policy must be reject or clamp, got %q", c.ProgressMonotonicPolicy)
	}
	if c.PersistenceBackend == "sql" {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	return nil
}
