// Package spec declares the YAML layout of a pipeline file: the survival
// model, its training data, the record source and the prediction sinks.
package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"titanic/internal/transform"
)

// Columns is a list of variable names. A scalar in its place is rejected so
// that `variables: cabin` fails instead of silently becoming a one-item list.
type Columns []string

func (c *Columns) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: %w: variables should be a list", n.Line, transform.ErrInvalidArgument)
	}
	var out []string
	if err := n.Decode(&out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*c = out
	return nil
}

// Model configures the steps of the survival pipeline.
type Model struct {
	Target                 string  `yaml:"target"`
	CastVariables          Columns `yaml:"cast_variables"`
	NumericalVariables     Columns `yaml:"numerical_variables"`
	CategoricalVariables   Columns `yaml:"categorical_variables"`
	ExtractLetterVariables Columns `yaml:"extract_letter_variables"`
	DropVariables          Columns `yaml:"drop_variables"`
	RareLabelTolerance     float64 `yaml:"rare_label_tolerance"`
	RareLabelNCategories   int     `yaml:"rare_label_n_categories"`
	RegressionC            float64 `yaml:"regression_c"`
	MaxIterations          int     `yaml:"max_iterations"`
}

type Retrain struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 24h"
	Watch    bool   `yaml:"watch"`    // refit when the training file changes
}

type Training struct {
	Data    string  `yaml:"data"`
	Retrain Retrain `yaml:"retrain"`
}

// SinkConfigs keeps each sink block raw; the stream compiler decodes it into
// the driver's own Config.
type SinkConfigs struct {
	Kafka  yaml.Node `yaml:"kafka"`
	Stdout yaml.Node `yaml:"stdout"`
	Xlsx   yaml.Node `yaml:"xlsx"`
}

type Stream struct {
	BatchSize   int  `yaml:"batch_size"`
	FlushMS     int  `yaml:"flush_ms"`
	SkipInvalid bool `yaml:"skip_invalid"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Model    Model    `yaml:"model"`
	Training Training `yaml:"training"`

	Source struct {
		Kind   string `yaml:"kind"`
		Driver string `yaml:"driver"`
		Config string `yaml:"config"`
	} `yaml:"source"`

	Sinks       []string    `yaml:"sinks"`
	SinkConfigs SinkConfigs `yaml:"sink_configs"`
	Stream      Stream      `yaml:"stream"`
}
