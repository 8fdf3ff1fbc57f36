package kafka

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type CommitMode string

const (
	CommitAuto CommitMode = "auto" // mark as soon as the record is emitted
	CommitE2E  CommitMode = "e2e"  // mark once the scorer acknowledges it
)

const envPrefix = "TITANIC_KAFKA__"

type Config struct {
	Brokers   []string `koanf:"brokers"`
	Topics    []string `koanf:"topics"`
	GroupID   string   `koanf:"group_id"`
	StartFrom string   `koanf:"start_from"` // oldest|newest (default newest)
	Version   string   `koanf:"version"`
	TLSEn     bool     `koanf:"tls_enabled"`
	SASLUser  string   `koanf:"sasl_user"`
	SASLPass  string   `koanf:"sasl_pass"`

	CommitMode     CommitMode    `koanf:"commit_mode"`     // auto|e2e
	MaxInFlight    int           `koanf:"max_in_flight"`   // unacknowledged records per driver
	CommitInterval time.Duration `koanf:"commit_interval"` // flush cadence for marked offsets
}

// LoadConfig merges YAML (if present) with env-vars
// (prefix `TITANIC_KAFKA__`, delimiter `__`, comma-separated lists).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	// schema version check (only when YAML is present)
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("kafka schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if len(cfg.Brokers) == 0 || len(cfg.Topics) == 0 || cfg.GroupID == "" {
		return cfg, fmt.Errorf("kafka: brokers, topics and group_id are required")
	}
	return cfg, nil
}

// envValue maps TITANIC_KAFKA__GROUP_ID=x to group_id and splits lists.
func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, envPrefix), "__", "."))
	switch key {
	case "brokers", "topics":
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

func applyDefaults(c *Config) {
	if c.CommitMode != CommitAuto && c.CommitMode != CommitE2E {
		c.CommitMode = CommitAuto
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 1024
	}
	if c.CommitInterval == 0 {
		c.CommitInterval = 5 * time.Second
	}
	if c.StartFrom == "" {
		c.StartFrom = "newest"
	}
	if c.Version == "" {
		c.Version = "2.8.0"
	}
}
