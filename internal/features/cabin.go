package features

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// CabinFirstToken keeps only the first cabin of a space-separated cabin list.
type CabinFirstToken struct {
	transform.Stateless
	Column string
}

func NewCabinFirstToken() *CabinFirstToken {
	return &CabinFirstToken{Column: "cabin"}
}

func (c *CabinFirstToken) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	col, err := table.Column(df, c.Column)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	n := col.Len()
	vals := make([]string, n)
	ok := make([]bool, n)
	if col.Type() == series.String {
		for i := 0; i < n; i++ {
			vals[i], ok[i] = firstToken(col.Elem(i))
		}
	}
	return table.Replace(df, table.Strings(c.Column, vals, ok))
}

// firstToken maps absent values and blank strings to absent.
func firstToken(e series.Element) (string, bool) {
	if e.IsNA() {
		return "", false
	}
	fields := strings.Fields(e.String())
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
