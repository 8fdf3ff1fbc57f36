package preprocess

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/table"
)

// ErrColumnType is returned when a step meets a column of the wrong kind.
var ErrColumnType = errors.New("preprocess: unexpected column type")

func stringColumn(df dataframe.DataFrame, name string) (series.Series, error) {
	col, err := table.Column(df, name)
	if err != nil {
		return col, err
	}
	if col.Type() != series.String {
		return series.Series{}, fmt.Errorf("%w: %q is %s, want string", ErrColumnType, name, col.Type())
	}
	return col, nil
}

func numericColumn(df dataframe.DataFrame, name string) (series.Series, error) {
	col, err := table.Column(df, name)
	if err != nil {
		return col, err
	}
	if col.Type() == series.String {
		return series.Series{}, fmt.Errorf("%w: %q", table.ErrNotNumeric, name)
	}
	return col, nil
}

// complete returns the string values of col, failing on the first absent one.
func complete(step string, col series.Series) ([]string, error) {
	out := make([]string, col.Len())
	for i := range out {
		e := col.Elem(i)
		if e.IsNA() {
			return nil, fmt.Errorf("%s: %w: column %q row %d", step, table.ErrAbsentValue, col.Name, i)
		}
		out[i] = e.String()
	}
	return out, nil
}
