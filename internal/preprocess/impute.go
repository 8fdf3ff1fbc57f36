package preprocess

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// MissingLabel replaces absent categorical values.
const MissingLabel = "Missing"

// CategoricalImputer fills absent values of string columns with a fixed label.
type CategoricalImputer struct {
	columns []string
	Fill    string
	fitted  bool
}

func NewCategoricalImputer(columns []string) (*CategoricalImputer, error) {
	cols, err := transform.Columns("categorical_imputation", columns)
	if err != nil {
		return nil, err
	}
	return &CategoricalImputer{columns: cols, Fill: MissingLabel}, nil
}

func (c *CategoricalImputer) Fit(df dataframe.DataFrame, _ []float64) error {
	for _, name := range c.columns {
		if _, err := stringColumn(df, name); err != nil {
			return fmt.Errorf("categorical_imputation: %w", err)
		}
	}
	c.fitted = true
	return nil
}

func (c *CategoricalImputer) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !c.fitted {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	out := df
	for _, name := range c.columns {
		col, err := stringColumn(df, name)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("categorical_imputation: %w", err)
		}
		vals := make([]string, col.Len())
		for i := range vals {
			if e := col.Elem(i); e.IsNA() {
				vals[i] = c.Fill
			} else {
				vals[i] = e.String()
			}
		}
		if out, err = table.Replace(out, table.Strings(name, vals, nil)); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return out, nil
}

// MedianImputer fills absent values of numeric columns with the median seen at fit.
type MedianImputer struct {
	columns []string
	medians map[string]float64
}

func NewMedianImputer(columns []string) (*MedianImputer, error) {
	cols, err := transform.Columns("median_imputation", columns)
	if err != nil {
		return nil, err
	}
	return &MedianImputer{columns: cols}, nil
}

func (m *MedianImputer) Fit(df dataframe.DataFrame, _ []float64) error {
	medians := make(map[string]float64, len(m.columns))
	for _, name := range m.columns {
		col, err := numericColumn(df, name)
		if err != nil {
			return fmt.Errorf("median_imputation: %w", err)
		}
		observed := make([]float64, 0, col.Len())
		for _, v := range col.Float() {
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return fmt.Errorf("median_imputation: %w: column %q has no observed values", table.ErrAbsentValue, name)
		}
		medians[name] = series.Floats(observed).Median()
	}
	m.medians = medians
	return nil
}

// Median returns the fitted median of a column.
func (m *MedianImputer) Median(name string) (float64, bool) {
	v, ok := m.medians[name]
	return v, ok
}

func (m *MedianImputer) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if m.medians == nil {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	out := df
	for _, name := range m.columns {
		col, err := numericColumn(df, name)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("median_imputation: %w", err)
		}
		vals := col.Float()
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = m.medians[name]
			}
		}
		if out, err = table.Replace(out, table.Floats(name, vals)); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return out, nil
}

// MissingIndicator appends a 0/1 column "<var>_na" for every configured
// variable that had absent values at fit time.
type MissingIndicator struct {
	columns []string
	flagged []string
	fitted  bool
}

func NewMissingIndicator(columns []string) (*MissingIndicator, error) {
	cols, err := transform.Columns("missing_indicator", columns)
	if err != nil {
		return nil, err
	}
	return &MissingIndicator{columns: cols}, nil
}

func (m *MissingIndicator) Fit(df dataframe.DataFrame, _ []float64) error {
	if err := table.Require(df, m.columns...); err != nil {
		return fmt.Errorf("missing_indicator: %w", err)
	}
	m.flagged = m.flagged[:0]
	for _, name := range m.columns {
		col := df.Col(name)
		for i := 0; i < col.Len(); i++ {
			if col.Elem(i).IsNA() {
				m.flagged = append(m.flagged, name)
				break
			}
		}
	}
	m.fitted = true
	return nil
}

// Indicators lists the indicator columns Transform appends.
func (m *MissingIndicator) Indicators() []string {
	out := make([]string, len(m.flagged))
	for i, name := range m.flagged {
		out[i] = name + "_na"
	}
	return out
}

func (m *MissingIndicator) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !m.fitted {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	if err := table.Require(df, m.flagged...); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("missing_indicator: %w", err)
	}
	out := df
	for _, name := range m.flagged {
		col := df.Col(name)
		flags := make([]float64, col.Len())
		for i := range flags {
			if col.Elem(i).IsNA() {
				flags[i] = 1
			}
		}
		var err error
		if out, err = table.Replace(out, table.Floats(name+"_na", flags)); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return out, nil
}
