package pipeline

import (
	"fmt"

	"titanic/internal/features"
	"titanic/internal/model"
	"titanic/internal/preprocess"
	"titanic/internal/spec"
)

// Build assembles the unfitted survival pipeline described by m.
func Build(m spec.Model) (*Pipeline, error) {
	cast, err := features.NewNumericCaster(m.CastVariables)
	if err != nil {
		return nil, err
	}
	catImpute, err := preprocess.NewCategoricalImputer(m.CategoricalVariables)
	if err != nil {
		return nil, err
	}
	indicator, err := preprocess.NewMissingIndicator(m.NumericalVariables)
	if err != nil {
		return nil, err
	}
	median, err := preprocess.NewMedianImputer(union(m.NumericalVariables, m.CastVariables))
	if err != nil {
		return nil, err
	}
	letter, err := features.NewLetterExtractor(m.ExtractLetterVariables)
	if err != nil {
		return nil, err
	}
	drop, err := preprocess.NewDropFeatures(m.DropVariables)
	if err != nil {
		return nil, err
	}
	rare, err := preprocess.NewRareLabelEncoder(m.RareLabelTolerance, m.RareLabelNCategories, m.CategoricalVariables)
	if err != nil {
		return nil, err
	}
	onehot, err := preprocess.NewOneHotEncoder(true, m.CategoricalVariables)
	if err != nil {
		return nil, err
	}
	logit, err := model.NewLogisticRegression(m.RegressionC, m.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("logit: %w", err)
	}

	return New("logit", logit,
		Step{"get_first_cabin", features.NewCabinFirstToken()},
		Step{"get_title", features.NewTitleExtractor()},
		Step{"cast_num", cast},
		Step{"categorical_imputation", catImpute},
		Step{"missing_indicator", indicator},
		Step{"median_imputation", median},
		Step{"extract_letter", letter},
		Step{"drop_features", drop},
		Step{"rare_label_encoder", rare},
		Step{"categorical_encoder", onehot},
		Step{"scaler", preprocess.NewStandardScaler()},
	), nil
}

// union keeps the order of a, then appends the names of b not already in a.
// Cast columns outside numerical_variables get no missing indicator but are
// still imputed, so an absent sibsp or parch never reaches the scaler.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
