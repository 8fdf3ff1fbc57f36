package config

import (
	"errors"
	"fmt"

	kcfg "titanic/source/kafka"
)

// LoadKafkaConfig loads the Kafka source settings a pipeline spec points at
// through source.config.
func LoadKafkaConfig(paths Paths) (kcfg.Config, error) {
	if paths.Source == "" {
		return kcfg.Config{}, errors.New("source.config is required for a kafka source")
	}
	c, err := kcfg.LoadConfig(paths.Source)
	if err != nil {
		return c, fmt.Errorf("kafka source %s: %w", paths.Source, err)
	}
	return c, nil
}
