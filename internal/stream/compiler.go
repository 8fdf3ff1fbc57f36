// Package stream scores passenger records read from a stream source and fans
// the outcomes out to the configured sinks. Records are micro-batched,
// validated, scored with the serving pipeline and only then acknowledged.
package stream

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"titanic/internal/config"
	"titanic/internal/spec"
	"titanic/sink"
	kafkasink "titanic/sink/kafka"
	"titanic/sink/stdout"
	"titanic/sink/xlsx"
	"titanic/source/kafka"
)

// Compile builds a Runner for the source and sinks declared in f. The
// runner is not started.
func Compile(f spec.File, paths config.Paths, models Models) (*Runner, error) {
	if f.Source.Kind != "kafka" {
		return nil, fmt.Errorf("unsupported source %q", f.Source.Kind)
	}
	kc, err := config.LoadKafkaConfig(paths)
	if err != nil {
		return nil, err
	}
	src, err := kafka.NewAdapter(f.Source.Driver)
	if err != nil {
		return nil, err
	}
	if err := src.Configure(kc); err != nil {
		return nil, err
	}

	r := NewRunner(models, Options{
		BatchSize:   f.Stream.BatchSize,
		FlushEvery:  time.Duration(f.Stream.FlushMS) * time.Millisecond,
		SkipInvalid: f.Stream.SkipInvalid,
	})
	r.SetSource(src)

	if err := addSinks(r, f, paths); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func addSinks(r *Runner, f spec.File, paths config.Paths) error {
	for _, name := range f.Sinks {
		s, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}
		cfg, err := sinkConfig(name, f.SinkConfigs, paths)
		if err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		if err := s.Configure(cfg); err != nil {
			return err
		}
		r.AddSink(s)
	}
	return nil
}

func sinkConfig(name string, sc spec.SinkConfigs, paths config.Paths) (any, error) {
	switch name {
	case "stdout":
		var c stdout.Config
		err := decode(&sc.Stdout, &c)
		return c, err
	case "kafka":
		var c kafkasink.Config
		err := decode(&sc.Kafka, &c)
		return c, err
	case "xlsx":
		var c xlsx.Config
		if err := decode(&sc.Xlsx, &c); err != nil {
			return nil, err
		}
		c.Path = paths.Resolve(c.Path)
		return c, nil
	default:
		return nil, fmt.Errorf("no config block for sink %q", name)
	}
}

// decode leaves v at its zero value when the block is absent.
func decode(n *yaml.Node, v any) error {
	if n.Kind == 0 {
		return nil
	}
	return n.Decode(v)
}
