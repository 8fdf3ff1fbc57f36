package features

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// LetterExtractor replaces each value of its columns with the value's first
// character, e.g. the deck letter of a cabin.
type LetterExtractor struct {
	transform.Stateless
	columns []string
}

func NewLetterExtractor(columns []string) (*LetterExtractor, error) {
	cols, err := transform.Columns("extract_letter", columns)
	if err != nil {
		return nil, err
	}
	return &LetterExtractor{columns: cols}, nil
}

func (l *LetterExtractor) Columns() []string { return append([]string(nil), l.columns...) }

func (l *LetterExtractor) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := table.Require(df, l.columns...); err != nil {
		return dataframe.DataFrame{}, err
	}
	out := df
	for _, name := range l.columns {
		col := df.Col(name)
		if col.Type() != series.String {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %q is %s, want string", ErrColumnType, name, col.Type())
		}
		n := col.Len()
		vals := make([]string, n)
		ok := make([]bool, n)
		for i := 0; i < n; i++ {
			e := col.Elem(i)
			if e.IsNA() {
				continue
			}
			s := e.String()
			if s == "" {
				continue
			}
			r, size := utf8.DecodeRuneInString(s)
			if r == utf8.RuneError && size <= 1 {
				vals[i], ok[i] = s[:1], true
				continue
			}
			vals[i], ok[i] = string(r), true
		}
		var err error
		if out, err = table.Replace(out, table.Strings(name, vals, ok)); err != nil {
			return dataframe.DataFrame{}, err
		}
	}
	return out, nil
}
