package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Engine holds process-level settings: listen addresses and the pipeline file.
type Engine struct {
	GRPCPort    int    `koanf:"grpc_port"`
	MetricsPort int    `koanf:"metrics_port"`
	PipelineYml string `koanf:"pipeline"`
	Log         struct {
		Level string `koanf:"level"`
		JSON  bool   `koanf:"json"`
	} `koanf:"log"`
}

// LoadEngineConfig merges an optional YAML file with env-vars
// (prefix `TITANIC__`, delimiter `__`, e.g. TITANIC__GRPC_PORT).
func LoadEngineConfig(path string) (Engine, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Engine{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Engine{}, fmt.Errorf("engine schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	_ = k.Load(env.Provider("TITANIC__", ".", envKey("TITANIC__")), nil)

	var cfg Engine
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.GRPCPort == 0 {
		cfg.GRPCPort = 7070
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9100
	}
	if cfg.PipelineYml == "" {
		cfg.PipelineYml = "pipeline.yml"
	}
	return cfg, nil
}

// envKey maps PREFIX_A__B to "a.b".
func envKey(prefix string) func(string) string {
	return func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}
}
