package pipeline

import (
	"titanic/internal/logging"
	"titanic/internal/table"
	"titanic/internal/telemetry"
	"titanic/internal/validation"
)

// RecordField names the pseudo-field used for errors that concern a whole
// record rather than one of its fields.
const RecordField = "record"

// Result is the outcome for one raw record. Rejected records are not scored.
type Result struct {
	Survived    int
	Probability float64
	Errors      validation.Errors
}

func (r Result) Rejected() bool { return len(r.Errors) > 0 }

// RecordError reports err against a whole record at row.
func RecordError(row int, err error) validation.Errors {
	return validation.Errors{{Row: row, Field: RecordField, Kind: validation.String, Msg: err.Error()}}
}

// ScoreRecords validates raw records against schema and scores those that
// pass. Results follow the input order; error rows index into rows.
func (p *Pipeline) ScoreRecords(schema validation.Schema, rows []map[string]any) []Result {
	out := make([]Result, len(rows))
	if len(rows) == 0 {
		return out
	}
	df, err := table.FromMaps(schema.Names(), rows)
	if err != nil {
		for i := range out {
			out[i].Errors = RecordError(i, err)
		}
		return out
	}

	_, errs := schema.Validate(df)
	for _, e := range errs {
		telemetry.ValidationErrors.WithLabelValues(e.Field).Inc()
		if e.Row != validation.MissingRow {
			out[e.Row].Errors = append(out[e.Row].Errors, e)
			continue
		}
		for i := range out {
			fe := e
			fe.Row = i
			out[i].Errors = append(out[i].Errors, fe)
		}
	}

	var keep []int
	for i := range out {
		if !out[i].Rejected() {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return out
	}

	proba, pred, err := p.Score(df.Subset(keep))
	if err == nil {
		for k, i := range keep {
			out[i].Probability, out[i].Survived = proba[k], int(pred[k])
		}
		return out
	}
	// A failing record fails the whole frame; retry one by one to isolate it.
	logging.With("pipeline").Warn("batch scoring failed, scoring records one by one", "rows", len(keep), "err", err)
	for _, i := range keep {
		proba, pred, err := p.Score(df.Subset([]int{i}))
		if err != nil {
			out[i].Errors = RecordError(i, err)
			continue
		}
		out[i].Probability, out[i].Survived = proba[0], int(pred[0])
	}
	return out
}
