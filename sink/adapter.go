package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"titanic/internal/frame"
	"titanic/internal/validation"
)

// Prediction is the outcome for one streamed passenger. A record that failed
// validation carries its field errors and is not scored.
type Prediction struct {
	Checkpoint  frame.Offset
	Key         []byte
	Record      map[string]any
	Survived    int
	Probability float64
	Errors      validation.Errors
	ScoredAt    time.Time
}

// Rejected reports whether the record was refused by the validator.
func (p Prediction) Rejected() bool { return len(p.Errors) > 0 }

type wire struct {
	Key         string                  `json:"key,omitempty"`
	Topic       string                  `json:"topic,omitempty"`
	Partition   int32                   `json:"partition"`
	Offset      int64                   `json:"offset"`
	Survived    *int                    `json:"survived,omitempty"`
	Probability *float64                `json:"probability,omitempty"`
	Errors      []validation.FieldError `json:"errors,omitempty"`
	Record      map[string]any          `json:"record,omitempty"`
	ScoredAt    time.Time               `json:"scored_at"`
}

// Encode renders p as a JSON object. Rejected predictions omit the score.
func Encode(p Prediction, withRecord bool) ([]byte, error) {
	w := wire{
		Key:       string(p.Key),
		Topic:     p.Checkpoint.Topic,
		Partition: p.Checkpoint.Partition,
		Offset:    p.Checkpoint.Offset,
		Errors:    p.Errors,
		ScoredAt:  p.ScoredAt.UTC(),
	}
	if !p.Rejected() {
		w.Survived = &p.Survived
		w.Probability = &p.Probability
	}
	if withRecord {
		w.Record = p.Record
	}
	return json.Marshal(w)
}

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Push(Prediction) error
	Close() error // idempotent
}

// Flusher is implemented by sinks that buffer. The stream runner calls Flush
// after every batch, before acknowledging the batch to the source.
type Flusher interface {
	Flush() error
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
