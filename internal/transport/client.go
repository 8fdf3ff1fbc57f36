package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"titanic/internal/pipeline"
	"titanic/internal/validation"
)

// Client talks to a scoring engine.
type Client struct {
	conn    *grpc.ClientConn
	scoring ScoringClient
	health  healthpb.HealthClient
}

// Response is a decoded Predict reply. Results follow the request order.
type Response struct {
	Results []pipeline.Result
	Version int64
}

// Dial connects to target. Without options the connection is plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    cc,
		scoring: NewScoringClient(cc),
		health:  healthpb.NewHealthClient(cc),
	}, nil
}

// Predict scores raw passenger records.
func (c *Client) Predict(ctx context.Context, records []map[string]any) (*Response, error) {
	list := make([]any, len(records))
	for i, r := range records {
		list[i] = r
	}
	req, err := structpb.NewStruct(map[string]any{"records": list})
	if err != nil {
		return nil, fmt.Errorf("transport: encode request: %w", err)
	}
	resp, err := c.scoring.Predict(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp, len(records))
}

// Serving reports whether the engine's scoring service is up.
func (c *Client) Serving(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func decodeResponse(resp *structpb.Struct, n int) (*Response, error) {
	fields := resp.GetFields()
	preds := fields["predictions"].GetListValue().GetValues()
	probas := fields["probabilities"].GetListValue().GetValues()
	if len(preds) != n || len(probas) != n {
		return nil, fmt.Errorf("transport: %d records but %d predictions", n, len(preds))
	}
	out := &Response{
		Results: make([]pipeline.Result, n),
		Version: int64(fields["version"].GetNumberValue()),
	}
	for i := range out.Results {
		out.Results[i].Survived = int(preds[i].GetNumberValue())
		out.Results[i].Probability = probas[i].GetNumberValue()
	}
	for _, v := range fields["errors"].GetListValue().GetValues() {
		e := v.GetStructValue().GetFields()
		row := int(e["row"].GetNumberValue())
		if row < 0 || row >= n {
			return nil, fmt.Errorf("transport: error for unknown row %d", row)
		}
		out.Results[row].Errors = append(out.Results[row].Errors, validation.FieldError{
			Row:   row,
			Field: e["field"].GetStringValue(),
			Kind:  validation.Kind(e["kind"].GetStringValue()),
			Value: e["value"].GetStringValue(),
			Msg:   e["msg"].GetStringValue(),
		})
	}
	return out, nil
}
