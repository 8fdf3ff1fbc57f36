package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"titanic/internal/spec"
)

const SupportedSchema = "v1"

// Paths are the files a pipeline spec points at, resolved against the
// directory of the spec itself.
type Paths struct {
	Dir      string
	Training string
	Source   string
}

// Resolve makes p absolute relative to the spec directory.
func (ps Paths) Resolve(p string) string { return resolve(ps.Dir, p) }

// LoadPipelineSpec parses a pipeline YAML, validates schema_version, fills
// model defaults and returns the spec with its referenced paths made absolute.
func LoadPipelineSpec(path string) (spec.File, Paths, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, Paths{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, Paths{}, fmt.Errorf("pipeline %s: %w", path, err)
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, Paths{}, fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	var set explicit
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return cfg, Paths{}, fmt.Errorf("pipeline %s: %w", path, err)
	}
	applyModelDefaults(&cfg.Model, set)
	applyStreamDefaults(&cfg)

	dir := filepath.Dir(path)
	return cfg, Paths{
		Dir:      dir,
		Training: resolve(dir, cfg.Training.Data),
		Source:   resolve(dir, cfg.Source.Config),
	}, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(filepath.Join(dir, p))
	if err != nil {
		return filepath.Join(dir, p)
	}
	return abs
}

// DefaultModel is the reference configuration of the survival model.
func DefaultModel() spec.Model {
	return spec.Model{
		Target:                 "survived",
		CastVariables:          spec.Columns{"pclass", "age", "sibsp", "parch", "fare"},
		NumericalVariables:     spec.Columns{"age", "fare"},
		CategoricalVariables:   spec.Columns{"sex", "cabin", "embarked", "title"},
		ExtractLetterVariables: spec.Columns{"cabin"},
		DropVariables:          spec.Columns{"name", "ticket", "boat", "body", "home.dest"},
		RareLabelTolerance:     0.05,
		RareLabelNCategories:   1,
		RegressionC:            0.0005,
		MaxIterations:          100,
	}
}

// explicit records which model settings the file spells out, for settings
// whose zero value is meaningful.
type explicit struct {
	Model struct {
		RareLabelTolerance   *float64 `yaml:"rare_label_tolerance"`
		RareLabelNCategories *int     `yaml:"rare_label_n_categories"`
	} `yaml:"model"`
}

// applyModelDefaults fills settings that were left out of the file. Lists
// present in the file, even empty ones, are kept as written, and so is an
// explicit 0 for the rare label settings.
func applyModelDefaults(m *spec.Model, set explicit) {
	d := DefaultModel()
	if m.Target == "" {
		m.Target = d.Target
	}
	if m.CastVariables == nil {
		m.CastVariables = d.CastVariables
	}
	if m.NumericalVariables == nil {
		m.NumericalVariables = d.NumericalVariables
	}
	if m.CategoricalVariables == nil {
		m.CategoricalVariables = d.CategoricalVariables
	}
	if m.ExtractLetterVariables == nil {
		m.ExtractLetterVariables = d.ExtractLetterVariables
	}
	if m.DropVariables == nil {
		m.DropVariables = d.DropVariables
	}
	if set.Model.RareLabelTolerance == nil {
		m.RareLabelTolerance = d.RareLabelTolerance
	}
	if set.Model.RareLabelNCategories == nil {
		m.RareLabelNCategories = d.RareLabelNCategories
	}
	if m.RegressionC == 0 {
		m.RegressionC = d.RegressionC
	}
	if m.MaxIterations == 0 {
		m.MaxIterations = d.MaxIterations
	}
}

func applyStreamDefaults(f *spec.File) {
	if f.Stream.BatchSize == 0 {
		f.Stream.BatchSize = 64
	}
	if f.Stream.FlushMS == 0 {
		f.Stream.FlushMS = 500
	}
}
