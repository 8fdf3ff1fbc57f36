package features

import (
	"errors"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanic/internal/table"
	"titanic/internal/transform"
)

func passengers(t *testing.T) dataframe.DataFrame {
	t.Helper()
	df, err := table.FromMaps(
		[]string{"name", "age", "cabin", "embarked"},
		[]map[string]any{
			{"name": "Mrs. John Doe", "age": "29", "cabin": "C23 C25 C27", "embarked": "S"},
			{"name": "Dr. Who", "age": nil, "cabin": nil, "embarked": "C"},
			{"name": "Kelly, Master. Tom", "age": "0.92", "cabin": "", "embarked": "Q"},
			{"name": "Allen, Miss. Elisabeth", "age": 58, "cabin": "  B5  ", "embarked": nil},
		},
	)
	require.NoError(t, err)
	return df
}

// allSteps returns each feature transformer configured for the passengers table.
func allSteps(t *testing.T) map[string]transform.Transformer {
	t.Helper()
	letter, err := NewLetterExtractor([]string{"cabin"})
	require.NoError(t, err)
	numeric, err := NewNumericCaster([]string{"age"})
	require.NoError(t, err)
	return map[string]transform.Transformer{
		"cabin":   NewCabinFirstToken(),
		"title":   NewTitleExtractor(),
		"letter":  letter,
		"numeric": numeric,
	}
}

func records(s series.Series) []string { return s.Records() }

func TestTransformers_PreserveRowsAndUntouchedColumns(t *testing.T) {
	touched := map[string][]string{
		"cabin":   {"cabin"},
		"title":   {"title"},
		"letter":  {"cabin"},
		"numeric": {"age"},
	}
	for name, step := range allSteps(t) {
		t.Run(name, func(t *testing.T) {
			in := passengers(t)
			before := in.Records()

			require.NoError(t, step.Fit(in, nil))
			out, err := step.Transform(in)
			require.NoError(t, err)

			assert.Equal(t, in.Nrow(), out.Nrow())
			assert.Equal(t, before, in.Records(), "input table must not change")
			for _, col := range in.Names() {
				if contains(touched[name], col) {
					continue
				}
				assert.Equal(t, records(in.Col(col)), records(out.Col(col)), "column %s", col)
				assert.Equal(t, in.Col(col).Type(), out.Col(col).Type(), "column %s", col)
			}
			// row order: names identify rows and pass through untouched
			assert.Equal(t, records(in.Col("name")), records(out.Col("name")))
		})
	}
}

func TestTransformers_Deterministic(t *testing.T) {
	for name, step := range allSteps(t) {
		in := passengers(t)
		a, err := step.Transform(in)
		require.NoError(t, err, name)
		b, err := step.Transform(in)
		require.NoError(t, err, name)
		assert.Equal(t, a.Records(), b.Records(), name)
	}
}

func TestCabinFirstToken(t *testing.T) {
	out, err := NewCabinFirstToken().Transform(passengers(t))
	require.NoError(t, err)

	cabin := out.Col("cabin")
	assert.Equal(t, "C23", cabin.Elem(0).String())
	assert.True(t, cabin.Elem(1).IsNA(), "absent stays absent")
	assert.True(t, cabin.Elem(2).IsNA(), "empty string maps to absent")
	assert.Equal(t, "B5", cabin.Elem(3).String())
}

func TestCabinFirstToken_NonStringColumnIsAbsent(t *testing.T) {
	df := dataframe.New(series.New([]float64{1.5, 2}, series.Float, "cabin"))
	out, err := NewCabinFirstToken().Transform(df)
	require.NoError(t, err)
	assert.Equal(t, series.String, out.Col("cabin").Type())
	assert.True(t, out.Col("cabin").Elem(0).IsNA())
	assert.True(t, out.Col("cabin").Elem(1).IsNA())
}

func TestTitleExtractor(t *testing.T) {
	out, err := NewTitleExtractor().Transform(passengers(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Mrs", "Other", "Master", "Miss"}, out.Col("title").Records())
	assert.Equal(t, passengers(t).Col("name").Records(), out.Col("name").Records())
}

func TestTitle_ScanOrder(t *testing.T) {
	cases := map[string]string{
		"Mrs. John Doe":            "Mrs",
		"Dr. Who":                  "Other",
		"Mr. and Mrs. Smith":       "Mr",
		"Mrs. Smith and Mr. Smith": "Mrs",
		"Kelly, Master. Tom":       "Master",
		"Brown, Miss. Amelia":      "Miss",
		"mrs lowercase":            "Other",
		"Mrsmith":                  "Mrs",
		"":                         "Other",
	}
	for name, want := range cases {
		assert.Equal(t, want, Title(name), "name %q", name)
	}
}

func TestTitleExtractor_MissingColumn(t *testing.T) {
	df := dataframe.New(series.New([]string{"x"}, series.String, "cabin"))
	_, err := NewTitleExtractor().Transform(df)
	assert.True(t, errors.Is(err, table.ErrMissingColumn))
}

func TestLetterExtractor(t *testing.T) {
	step, err := NewLetterExtractor([]string{"cabin", "embarked"})
	require.NoError(t, err)

	out, err := step.Transform(passengers(t))
	require.NoError(t, err)

	cabin := out.Col("cabin")
	assert.Equal(t, "C", cabin.Elem(0).String())
	assert.True(t, cabin.Elem(1).IsNA())
	assert.True(t, cabin.Elem(2).IsNA())
	assert.Equal(t, " ", cabin.Elem(3).String())
	assert.True(t, out.Col("embarked").Elem(3).IsNA())
}

func TestLetterExtractor_UnicodeAndIdempotent(t *testing.T) {
	df := dataframe.New(series.New([]string{"C23", "Édouard", "NaN"}, series.String, "cabin"))
	step, err := NewLetterExtractor([]string{"cabin"})
	require.NoError(t, err)

	once, err := step.Transform(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "É", "NaN"}, once.Col("cabin").Records())

	twice, err := step.Transform(once)
	require.NoError(t, err)
	assert.Equal(t, once.Records(), twice.Records())
}

func TestLetterExtractor_RejectsNonList(t *testing.T) {
	_, err := NewLetterExtractor(nil)
	assert.True(t, errors.Is(err, transform.ErrInvalidArgument))

	_, err = NewLetterExtractor([]string{})
	assert.True(t, errors.Is(err, transform.ErrInvalidArgument))

	_, err = NewLetterExtractor([]string{"cabin", ""})
	assert.True(t, errors.Is(err, transform.ErrInvalidArgument))
}

func TestLetterExtractor_NonStringColumn(t *testing.T) {
	df := dataframe.New(series.New([]float64{1}, series.Float, "cabin"))
	step, err := NewLetterExtractor([]string{"cabin"})
	require.NoError(t, err)
	_, err = step.Transform(df)
	assert.True(t, errors.Is(err, ErrColumnType))
}

func TestLetterExtractor_ConfigIsCopied(t *testing.T) {
	cols := []string{"cabin"}
	step, err := NewLetterExtractor(cols)
	require.NoError(t, err)
	cols[0] = "name"
	assert.Equal(t, []string{"cabin"}, step.Columns())
}

func TestNumericCaster(t *testing.T) {
	step, err := NewNumericCaster([]string{"age"})
	require.NoError(t, err)

	out, err := step.Transform(passengers(t))
	require.NoError(t, err)

	age := out.Col("age")
	assert.Equal(t, series.Float, age.Type())
	assert.Equal(t, 29.0, age.Elem(0).Float())
	assert.True(t, age.Elem(1).IsNA())
	assert.InDelta(t, 0.92, age.Elem(2).Float(), 1e-12)
	assert.Equal(t, 58.0, age.Elem(3).Float())
}

func TestNumericCaster_IntColumn(t *testing.T) {
	df := dataframe.New(series.New([]int{1, 3}, series.Int, "pclass"))
	step, err := NewNumericCaster([]string{"pclass"})
	require.NoError(t, err)
	out, err := step.Transform(df)
	require.NoError(t, err)
	assert.Equal(t, series.Float, out.Col("pclass").Type())
	assert.Equal(t, []float64{1, 3}, out.Col("pclass").Float())
}

func TestNumericCaster_FailsWholeCall(t *testing.T) {
	df, err := table.FromMaps([]string{"age", "fare"}, []map[string]any{
		{"age": "29", "fare": "7.25"},
		{"age": "31", "fare": "abc"},
	})
	require.NoError(t, err)
	step, err := NewNumericCaster([]string{"age", "fare"})
	require.NoError(t, err)

	out, err := step.Transform(df)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
	assert.Contains(t, err.Error(), `"abc"`)
	assert.Equal(t, 0, out.Nrow(), "no partial output")
	assert.Equal(t, series.String, df.Col("age").Type(), "input untouched")
}

func TestNumericCaster_RejectsNonList(t *testing.T) {
	_, err := NewNumericCaster(nil)
	assert.True(t, errors.Is(err, transform.ErrInvalidArgument))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
