package preprocess

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"titanic/internal/logging"
	"titanic/internal/table"
	"titanic/internal/transform"
)

// RareLabel replaces infrequent categories.
const RareLabel = "Rare"

// RareLabelEncoder groups the categories of each variable whose share of the
// training rows is below Tolerance into RareLabel. Variables with at most
// NCategories distinct values are left alone.
type RareLabelEncoder struct {
	columns     []string
	Tolerance   float64
	NCategories int
	frequent    map[string]map[string]bool
}

func NewRareLabelEncoder(tol float64, nCategories int, columns []string) (*RareLabelEncoder, error) {
	cols, err := transform.Columns("rare_label_encoder", columns)
	if err != nil {
		return nil, err
	}
	if tol < 0 || tol > 1 {
		return nil, fmt.Errorf("rare_label_encoder: %w: tol %v outside [0, 1]", transform.ErrInvalidArgument, tol)
	}
	if nCategories < 0 {
		return nil, fmt.Errorf("rare_label_encoder: %w: n_categories %d is negative", transform.ErrInvalidArgument, nCategories)
	}
	return &RareLabelEncoder{columns: cols, Tolerance: tol, NCategories: nCategories}, nil
}

func (r *RareLabelEncoder) Fit(df dataframe.DataFrame, _ []float64) error {
	frequent := make(map[string]map[string]bool, len(r.columns))
	for _, name := range r.columns {
		col, err := stringColumn(df, name)
		if err != nil {
			return fmt.Errorf("rare_label_encoder: %w", err)
		}
		vals, err := complete("rare_label_encoder", col)
		if err != nil {
			return err
		}
		counts := make(map[string]int)
		for _, v := range vals {
			counts[v]++
		}
		keep := make(map[string]bool, len(counts))
		if len(counts) > r.NCategories {
			for v, n := range counts {
				if float64(n)/float64(len(vals)) >= r.Tolerance {
					keep[v] = true
				}
			}
		} else {
			logging.L().Warn("rare_label_encoder: variable has few categories, all kept",
				"variable", name, "categories", len(counts), "n_categories", r.NCategories)
			for v := range counts {
				keep[v] = true
			}
		}
		frequent[name] = keep
	}
	r.frequent = frequent
	return nil
}

// Frequent returns the sorted categories of a variable kept at fit.
func (r *RareLabelEncoder) Frequent(name string) []string {
	out := make([]string, 0, len(r.frequent[name]))
	for v := range r.frequent[name] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (r *RareLabelEncoder) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if r.frequent == nil {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	out := df
	for _, name := range r.columns {
		col, err := stringColumn(df, name)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("rare_label_encoder: %w", err)
		}
		vals, err := complete("rare_label_encoder", col)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		keep := r.frequent[name]
		for i, v := range vals {
			if !keep[v] {
				vals[i] = RareLabel
			}
		}
		if out, err = table.Replace(out, table.Strings(name, vals, nil)); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return out, nil
}
