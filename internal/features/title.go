package features

import (
	"regexp"

	"github.com/go-gota/gota/dataframe"

	"titanic/internal/table"
	"titanic/internal/transform"
)

// OtherTitle is assigned when no known title occurs in the name.
const OtherTitle = "Other"

// Alternation order matters: at each position Mrs is tried before Mr.
var titlePattern = regexp.MustCompile(`Mrs|Mr|Miss|Master`)

// TitleExtractor derives a title column from the passenger name.
type TitleExtractor struct {
	transform.Stateless
	Source string
	Target string
}

func NewTitleExtractor() *TitleExtractor {
	return &TitleExtractor{Source: "name", Target: "title"}
}

func (t *TitleExtractor) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	col, err := table.Column(df, t.Source)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	titles := make([]string, col.Len())
	for i := range titles {
		e := col.Elem(i)
		if e.IsNA() {
			titles[i] = OtherTitle
			continue
		}
		titles[i] = Title(e.String())
	}
	return table.Replace(df, table.Strings(t.Target, titles, nil))
}

// Title returns the first known title found in name, or OtherTitle.
func Title(name string) string {
	if m := titlePattern.FindString(name); m != "" {
		return m
	}
	return OtherTitle
}
