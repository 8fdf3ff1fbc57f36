package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/spec"
	"titanic/internal/table"
)

// SplitTarget separates the target column from the features. Labels must be 0 or 1.
func SplitTarget(df dataframe.DataFrame, target string) (dataframe.DataFrame, []float64, error) {
	col, err := table.Column(df, target)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	y := make([]float64, col.Len())
	for i := range y {
		e := col.Elem(i)
		if e.IsNA() {
			return dataframe.DataFrame{}, nil, fmt.Errorf("%w: %q row %d is absent", ErrTarget, target, i)
		}
		v := e.Float()
		if col.Type() == series.String {
			if v, err = strconv.ParseFloat(strings.TrimSpace(e.String()), 64); err != nil {
				return dataframe.DataFrame{}, nil, fmt.Errorf("%w: %q row %d: %q", ErrTarget, target, i, e.String())
			}
		}
		if v != 0 && v != 1 {
			return dataframe.DataFrame{}, nil, fmt.Errorf("%w: %q row %d: %v is not 0 or 1", ErrTarget, target, i, v)
		}
		y[i] = v
	}
	X := df.Drop(target)
	if X.Err != nil {
		return dataframe.DataFrame{}, nil, X.Err
	}
	return X, y, nil
}

// Train builds the pipeline for m and fits it on df, which must carry the target column.
func Train(m spec.Model, df dataframe.DataFrame) (*Pipeline, error) {
	p, err := Build(m)
	if err != nil {
		return nil, err
	}
	X, y, err := SplitTarget(df, m.Target)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(X, y); err != nil {
		return nil, err
	}
	return p, nil
}

// TrainFile trains on the CSV at path.
func TrainFile(m spec.Model, path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	df, err := table.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return Train(m, df)
}
