package kafka

import (
	"context"
	"fmt"

	"titanic/internal/frame"
)

// EmitFunc hands a consumed record to the scorer. An error stops the claim.
type EmitFunc func(*frame.Frame) error

type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}

// Acker is implemented by drivers that commit offsets only once the scorer
// acknowledges a record (commit_mode: e2e).
type Acker interface {
	OnAck(frame.Offset)
}

// Factory builds an Adapter.
type Factory func() Adapter

var registry = map[string]Factory{}

// Register makes a driver available to NewAdapter under name.
func Register(name string, f Factory) {
	registry[name] = f
}

// NewAdapter returns a fresh driver by name ("sarama").
func NewAdapter(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("kafka: unsupported driver %q", name)
}

func init() { Register("sarama", func() Adapter { return &SaramaDriver{} }) }
