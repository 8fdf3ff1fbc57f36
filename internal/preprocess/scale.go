package preprocess

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// StandardScaler centres every column on its training mean and divides by the
// population standard deviation. Constant columns keep a scale of 1.
type StandardScaler struct {
	names []string
	mean  []float64
	scale []float64
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

func (s *StandardScaler) Fit(df dataframe.DataFrame, _ []float64) error {
	if df.Err != nil {
		return df.Err
	}
	names := df.Names()
	if len(names) == 0 || df.Nrow() == 0 {
		return fmt.Errorf("scaler: empty table")
	}
	mean := make([]float64, len(names))
	scale := make([]float64, len(names))
	for j, name := range names {
		vals, err := observed(df, name)
		if err != nil {
			return err
		}
		m, sd := stat.PopMeanStdDev(vals, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		mean[j], scale[j] = m, sd
	}
	s.names, s.mean, s.scale = names, mean, scale
	return nil
}

// Names is the column order fixed at fit; Transform emits columns in this order.
func (s *StandardScaler) Names() []string { return append([]string(nil), s.names...) }

func (s *StandardScaler) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if s.names == nil {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	if err := table.Require(df, s.names...); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("scaler: %w", err)
	}
	cols := make([]series.Series, len(s.names))
	for j, name := range s.names {
		vals, err := observed(df, name)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		for i, v := range vals {
			vals[i] = (v - s.mean[j]) / s.scale[j]
		}
		cols[j] = table.Floats(name, vals)
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("scaler: %w", out.Err)
	}
	return out, nil
}

func observed(df dataframe.DataFrame, name string) ([]float64, error) {
	col, err := numericColumn(df, name)
	if err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	vals := col.Float()
	for i, v := range vals {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("scaler: %w: column %q row %d", table.ErrAbsentValue, name, i)
		}
	}
	return vals, nil
}
