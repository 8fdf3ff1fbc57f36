package preprocess

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// OneHotEncoder replaces each categorical variable with one 0/1 column per
// category seen at fit, named "<var>_<category>". With DropLast the last
// category (in order of first appearance) gets no column. Categories unseen
// at fit encode as all zeros.
type OneHotEncoder struct {
	columns    []string
	DropLast   bool
	categories map[string][]string
}

func NewOneHotEncoder(dropLast bool, columns []string) (*OneHotEncoder, error) {
	cols, err := transform.Columns("categorical_encoder", columns)
	if err != nil {
		return nil, err
	}
	return &OneHotEncoder{columns: cols, DropLast: dropLast}, nil
}

func (o *OneHotEncoder) Fit(df dataframe.DataFrame, _ []float64) error {
	categories := make(map[string][]string, len(o.columns))
	for _, name := range o.columns {
		col, err := stringColumn(df, name)
		if err != nil {
			return fmt.Errorf("categorical_encoder: %w", err)
		}
		vals, err := complete("categorical_encoder", col)
		if err != nil {
			return err
		}
		seen := make(map[string]bool)
		var order []string
		for _, v := range vals {
			if !seen[v] {
				seen[v] = true
				order = append(order, v)
			}
		}
		if o.DropLast && len(order) > 0 {
			order = order[:len(order)-1]
		}
		categories[name] = order
	}
	o.categories = categories
	return nil
}

// Encoded lists the columns Transform produces, in output order.
func (o *OneHotEncoder) Encoded() []string {
	var out []string
	for _, name := range o.columns {
		for _, c := range o.categories[name] {
			out = append(out, name+"_"+c)
		}
	}
	return out
}

func (o *OneHotEncoder) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if o.categories == nil {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	encoded := make(map[string]bool, len(o.columns))
	var added []series.Series
	for _, name := range o.columns {
		col, err := stringColumn(df, name)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("categorical_encoder: %w", err)
		}
		vals, err := complete("categorical_encoder", col)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		for _, c := range o.categories[name] {
			flags := make([]float64, len(vals))
			for i, v := range vals {
				if v == c {
					flags[i] = 1
				}
			}
			added = append(added, table.Floats(name+"_"+c, flags))
		}
		encoded[name] = true
	}

	var cols []series.Series
	for _, name := range df.Names() {
		if !encoded[name] {
			cols = append(cols, df.Col(name))
		}
	}
	cols = append(cols, added...)
	if len(cols) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("categorical_encoder: no columns left after encoding")
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("categorical_encoder: %w", out.Err)
	}
	return out, nil
}
