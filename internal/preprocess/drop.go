package preprocess

import (
	"errors"
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// DropFeatures removes a fixed set of columns.
type DropFeatures struct {
	transform.Stateless
	columns []string
}

func NewDropFeatures(columns []string) (*DropFeatures, error) {
	cols, err := transform.Columns("drop_features", columns)
	if err != nil {
		return nil, err
	}
	return &DropFeatures{columns: cols}, nil
}

func (d *DropFeatures) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := table.Require(df, d.columns...); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("drop_features: %w", err)
	}
	if len(d.columns) >= df.Ncol() {
		return dataframe.DataFrame{}, errors.New("drop_features: would drop every column")
	}
	out := df.Drop(d.columns)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("drop_features: %w", out.Err)
	}
	return out, nil
}
