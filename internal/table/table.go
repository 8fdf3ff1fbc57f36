// Package table holds the Row Table helpers shared by every pipeline step.
// A Row Table is a gota DataFrame; every helper returns a new frame and never
// mutates its input.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// Absent is the sentinel gota reads as a missing element.
const Absent = "NaN"

var (
	ErrMissingColumn = errors.New("table: missing column")
	ErrAbsentValue   = errors.New("table: absent value")
	ErrNotNumeric    = errors.New("table: column is not numeric")
)

// NaNValues are the raw spellings of a missing observation in input files.
var NaNValues = []string{"", "?", "NA", "NaN", "<nil>"}

// ReadCSV loads a CSV with a header row. Every column is kept as a string
// column; typing is the job of the validator and the casting steps.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return df, fmt.Errorf("table: read csv: %w", df.Err)
	}
	return df, nil
}

// FromMaps builds a string table with exactly the given columns, in order.
// Keys missing from a row, nil values and NaN spellings become absent.
func FromMaps(columns []string, rows []map[string]any) (dataframe.DataFrame, error) {
	if len(columns) == 0 {
		return dataframe.DataFrame{}, errors.New("table: no columns")
	}
	cols := make([]series.Series, len(columns))
	for c, name := range columns {
		vals := make([]string, len(rows))
		for r, row := range rows {
			vals[r] = formatValue(row[name])
		}
		cols[c] = series.New(vals, series.String, name)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return df, fmt.Errorf("table: from maps: %w", df.Err)
	}
	return df, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return Absent
	case string:
		for _, na := range NaNValues {
			if x == na {
				return Absent
			}
		}
		return x
	case float64:
		if math.IsNaN(x) {
			return Absent
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return formatValue(float64(x))
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Require reports the first of cols not present in df.
func Require(df dataframe.DataFrame, cols ...string) error {
	if df.Err != nil {
		return df.Err
	}
	for _, c := range cols {
		if !Has(df, c) {
			return fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// Has reports whether df carries a column named name.
func Has(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns a copy of the named column.
func Column(df dataframe.DataFrame, name string) (series.Series, error) {
	if err := Require(df, name); err != nil {
		return series.Series{}, err
	}
	return df.Col(name), nil
}

// Replace returns a copy of df with s replacing (or appended as) the column s.Name.
func Replace(df dataframe.DataFrame, s series.Series) (dataframe.DataFrame, error) {
	out := df.Mutate(s)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("table: replace %q: %w", s.Name, out.Err)
	}
	return out, nil
}

// Strings builds a string column; ok[i] == false marks row i absent.
func Strings(name string, vals []string, ok []bool) series.Series {
	out := make([]string, len(vals))
	for i, v := range vals {
		if ok != nil && !ok[i] {
			out[i] = Absent
			continue
		}
		out[i] = v
	}
	return series.New(out, series.String, name)
}

// Floats builds a float column; NaN entries are absent.
func Floats(name string, vals []float64) series.Series {
	return series.New(vals, series.Float, name)
}

// Matrix converts a fully numeric table into a dense row-major matrix in the
// column order of names. Absent values and string columns are errors.
func Matrix(df dataframe.DataFrame, names []string) (*mat.Dense, error) {
	if err := Require(df, names...); err != nil {
		return nil, err
	}
	rows, cols := df.Nrow(), len(names)
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("table: matrix of %dx%d", rows, cols)
	}
	m := mat.NewDense(rows, cols, nil)
	for j, name := range names {
		s := df.Col(name)
		if s.Type() == series.String {
			return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
		}
		for i, v := range s.Float() {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: column %q row %d", ErrAbsentValue, name, i)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}
