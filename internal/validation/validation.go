// Package validation checks incoming passenger tables against a per-field
// primitive schema. Problems are collected per row and field and handed back
// with the unchanged input; they never abort the caller.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Kind is the primitive type a field must hold.
type Kind string

const (
	Int    Kind = "int"
	Float  Kind = "float"
	String Kind = "string"
)

// MissingRow marks a FieldError that concerns a whole column.
const MissingRow = -1

// FieldError describes one rejected value.
type FieldError struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Kind  Kind   `json:"kind"`
	Value string `json:"value,omitempty"`
	Msg   string `json:"msg"`
}

func (e FieldError) Error() string {
	if e.Row == MissingRow {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("row %d: %s: %s (got %q)", e.Row, e.Field, e.Msg, e.Value)
}

// Errors is the list of problems found in one table.
type Errors []FieldError

func (es Errors) Error() string {
	switch len(es) {
	case 0:
		return "no validation errors"
	case 1:
		return es[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", es[0].Error(), len(es)-1)
	}
}

// Rows returns the set of rows with at least one error. A missing required
// column marks every row.
func (es Errors) Rows(n int) map[int]bool {
	out := make(map[int]bool)
	for _, e := range es {
		if e.Row == MissingRow {
			for i := 0; i < n; i++ {
				out[i] = true
			}
			continue
		}
		out[e.Row] = true
	}
	return out
}

// Field is one schema entry. Optional fields accept absent values.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

type Schema struct {
	Fields []Field
}

// Passenger is the schema of a raw passenger record. Every field is optional:
// the pipeline imputes absent categorical and numeric columns alike, so only
// values of the wrong type are rejected.
func Passenger() Schema {
	return Schema{Fields: []Field{
		{Name: "pclass", Kind: Int},
		{Name: "survived", Kind: Int},
		{Name: "name", Kind: String},
		{Name: "sex", Kind: String},
		{Name: "age", Kind: Float},
		{Name: "sibsp", Kind: Int},
		{Name: "parch", Kind: Int},
		{Name: "ticket", Kind: Int},
		{Name: "fare", Kind: Float},
		{Name: "cabin", Kind: String},
		{Name: "embarked", Kind: String},
		{Name: "boat", Kind: Int},
		{Name: "body", Kind: Int},
		{Name: "home.dest", Kind: String},
	}}
}

// Names lists the schema fields in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Validate returns df unchanged together with every field-level problem found.
// Columns not named by the schema are ignored.
func (s Schema) Validate(df dataframe.DataFrame) (dataframe.DataFrame, Errors) {
	var errs Errors
	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	for _, f := range s.Fields {
		if !present[f.Name] {
			if f.Required {
				errs = append(errs, FieldError{Row: MissingRow, Field: f.Name, Kind: f.Kind, Msg: "field required"})
			}
			continue
		}
		col := df.Col(f.Name)
		for i := 0; i < col.Len(); i++ {
			e := col.Elem(i)
			if e.IsNA() {
				if f.Required {
					errs = append(errs, FieldError{Row: i, Field: f.Name, Kind: f.Kind, Msg: "none is not an allowed value"})
				}
				continue
			}
			if msg := check(f.Kind, col.Type(), e); msg != "" {
				errs = append(errs, FieldError{Row: i, Field: f.Name, Kind: f.Kind, Value: e.String(), Msg: msg})
			}
		}
	}
	return df, errs
}

func check(k Kind, t series.Type, e series.Element) string {
	switch k {
	case String:
		return ""
	case Float:
		if t != series.String {
			return ""
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(e.String()), 64); err != nil {
			return "value is not a valid float"
		}
		return ""
	case Int:
		if t == series.Int || t == series.Bool {
			return ""
		}
		s := strings.TrimSpace(e.String())
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ""
		}
		// integral floats such as "3.0" or 3.0 are accepted
		if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) && !math.IsInf(v, 0) {
			return ""
		}
		return "value is not a valid integer"
	default:
		return fmt.Sprintf("unknown kind %q", k)
	}
}
