package transform

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidArgument marks a step built with an unusable configuration.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNotFitted is returned by stateful steps transformed before Fit.
var ErrNotFitted = errors.New("step is not fitted")

// Transformer is a single table-to-table step. Fit may retain summary
// statistics of its input; Transform must not modify df.
type Transformer interface {
	Fit(df dataframe.DataFrame, y []float64) error
	Transform(df dataframe.DataFrame) (dataframe.DataFrame, error)
}

// Estimator is the final, matrix-consuming step of a pipeline.
type Estimator interface {
	Fit(X *mat.Dense, y []float64) error
	PredictProba(X *mat.Dense) ([]float64, error)
	Predict(X *mat.Dense) ([]float64, error)
}

// Stateless provides the no-op fit shared by steps that learn nothing.
type Stateless struct{}

func (Stateless) Fit(dataframe.DataFrame, []float64) error { return nil }

// FitTransform fits t on df and returns t's transform of the same table.
func FitTransform(t Transformer, df dataframe.DataFrame, y []float64) (dataframe.DataFrame, error) {
	if err := t.Fit(df, y); err != nil {
		return dataframe.DataFrame{}, err
	}
	return t.Transform(df)
}

// Columns validates a step's column list: it must be a non-empty list of
// non-empty names.
func Columns(step string, cols []string) ([]string, error) {
	if cols == nil {
		return nil, fmt.Errorf("%s: %w: variables should be a list", step, ErrInvalidArgument)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: %w: variables list is empty", step, ErrInvalidArgument)
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, fmt.Errorf("%s: %w: empty variable name at index %d", step, ErrInvalidArgument, i)
		}
		out[i] = c
	}
	return out, nil
}
