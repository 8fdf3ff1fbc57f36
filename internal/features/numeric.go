package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// NumericCaster converts its columns to float columns. Absent values stay
// absent; any other unparsable value fails the whole call.
type NumericCaster struct {
	transform.Stateless
	columns []string
}

func NewNumericCaster(columns []string) (*NumericCaster, error) {
	cols, err := transform.Columns("cast_numerical", columns)
	if err != nil {
		return nil, err
	}
	return &NumericCaster{columns: cols}, nil
}

func (c *NumericCaster) Columns() []string { return append([]string(nil), c.columns...) }

func (c *NumericCaster) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := table.Require(df, c.columns...); err != nil {
		return dataframe.DataFrame{}, err
	}
	// Cast every column before touching the output so a failure leaves nothing half done.
	cast := make([]series.Series, 0, len(c.columns))
	for _, name := range c.columns {
		vals, err := toFloats(df.Col(name))
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		cast = append(cast, table.Floats(name, vals))
	}
	out := df
	for _, s := range cast {
		var err error
		if out, err = table.Replace(out, s); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return out, nil
}

func toFloats(col series.Series) ([]float64, error) {
	switch col.Type() {
	case series.Float, series.Int, series.Bool:
		return col.Float(), nil
	case series.String:
	default:
		return nil, fmt.Errorf("%w: %q is %s", ErrColumnType, col.Name, col.Type())
	}
	out := make([]float64, col.Len())
	for i := range out {
		e := col.Elem(i)
		if e.IsNA() {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(e.String()), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrConversion, col.Name, i, e.String())
		}
		out[i] = v
	}
	return out, nil
}
