package transport

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"titanic/internal/pipeline"
	"titanic/internal/validation"
)

// Models hands out the serving pipeline and its generation.
type Models interface {
	Current() *pipeline.Pipeline
	Generation() int64
}

// Scorer implements ScoringServer on top of the serving pipeline.
type Scorer struct {
	models Models
	schema validation.Schema
}

func NewScorer(models Models) *Scorer {
	return &Scorer{models: models, schema: validation.Passenger()}
}

func (s *Scorer) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	list := req.GetFields()["records"].GetListValue()
	if list == nil {
		return nil, status.Error(codes.InvalidArgument, "records: expected a list of objects")
	}
	rows := make([]map[string]any, len(list.GetValues()))
	for i, v := range list.GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, status.Errorf(codes.InvalidArgument, "records[%d]: expected an object", i)
		}
		rows[i] = obj.AsMap()
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	model := s.models.Current()
	if model == nil {
		return nil, status.Error(codes.Unavailable, "no fitted model")
	}
	out, err := encodeResults(model.ScoreRecords(s.schema, rows), s.models.Generation())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func encodeResults(results []pipeline.Result, version int64) (*structpb.Struct, error) {
	preds := make([]any, len(results))
	probas := make([]any, len(results))
	errs := []any{}
	for i, r := range results {
		if r.Rejected() {
			for _, e := range r.Errors {
				errs = append(errs, map[string]any{
					"row":   e.Row,
					"field": e.Field,
					"kind":  string(e.Kind),
					"value": e.Value,
					"msg":   e.Msg,
				})
			}
			continue
		}
		preds[i] = r.Survived
		probas[i] = r.Probability
	}
	return structpb.NewStruct(map[string]any{
		"predictions":   preds,
		"probabilities": probas,
		"errors":        errs,
		"version":       version,
	})
}
