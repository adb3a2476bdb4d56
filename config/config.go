// Package config loads the audit serializer configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/root-sector/access-audit-serializer/types"
)

// Environment variables overriding file values
const (
	EnvLogLevel        = "AUDIT_LOG_LEVEL"
	EnvMetricsEnabled  = "AUDIT_METRICS_ENABLED"
	EnvJournalEnabled  = "AUDIT_JOURNAL_ENABLED"
	EnvJournalSink     = "AUDIT_JOURNAL_SINK"
	EnvMongoURI        = "AUDIT_MONGO_URI"
	EnvMongoDatabase   = "AUDIT_MONGO_DATABASE"
	EnvMongoCollection = "AUDIT_MONGO_COLLECTION"
)

var (
	// ErrInvalidConfig is returned when the configuration does not validate
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeFile(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// decodeFile decodes a YAML document over cfg. Scalars and sections merge
// with the defaults, but a roles key replaces the default role table.
func decodeFile(data []byte, cfg *types.Config) error {
	var keys struct {
		Roles yaml.Node `yaml:"roles"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return err
	}
	if keys.Roles.Kind != 0 {
		cfg.Roles = nil
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *types.Config) {
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)
	cfg.Metrics.Enabled = getEnvBool(EnvMetricsEnabled, cfg.Metrics.Enabled)
	cfg.Journal.Enabled = getEnvBool(EnvJournalEnabled, cfg.Journal.Enabled)
	cfg.Journal.Sink = getEnv(EnvJournalSink, cfg.Journal.Sink)
	cfg.Journal.MongoURI = getEnv(EnvMongoURI, cfg.Journal.MongoURI)
	cfg.Journal.Database = getEnv(EnvMongoDatabase, cfg.Journal.Database)
	cfg.Journal.Collection = getEnv(EnvMongoCollection, cfg.Journal.Collection)
}

// Validate checks the configuration
func Validate(cfg *types.Config) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, cfg.LogLevel)
	}

	if cfg.Journal.Enabled {
		switch cfg.Journal.Sink {
		case types.JournalSinkLog:
		case types.JournalSinkMongo:
			if cfg.Journal.MongoURI == "" {
				return fmt.Errorf("%w: mongo journal requires a URI", ErrInvalidConfig)
			}
			if cfg.Journal.Database == "" {
				return fmt.Errorf("%w: mongo journal requires a database", ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: unknown journal sink %q", ErrInvalidConfig, cfg.Journal.Sink)
		}
	}

	for role, actions := range cfg.Roles {
		for _, a := range actions {
			if a == "" {
				return fmt.Errorf("%w: role %q grants an empty action", ErrInvalidConfig, role)
			}
		}
	}
	return nil
}

// ApplyLogLevel sets the global zerolog level from the configuration
func ApplyLogLevel(cfg *types.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, cfg.LogLevel)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
