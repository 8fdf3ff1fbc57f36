package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"titanic/internal/config"
	"titanic/internal/logging"
	"titanic/internal/pipeline"
	"titanic/internal/retrain"
	"titanic/internal/stream"
	"titanic/internal/telemetry"
	"titanic/internal/transport"
)

func Bootstrap(ctx context.Context, cfg config.Engine) (*Engine, error) {
	log := logging.With("engine")

	// 1. pipeline spec and the first fit
	f, paths, err := config.LoadPipelineSpec(cfg.PipelineYml)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if paths.Training == "" {
		return nil, errors.New("pipeline: training.data is required")
	}
	models := &retrain.Holder{}
	sched := retrain.NewScheduler(models, func() (*pipeline.Pipeline, error) {
		return pipeline.TrainFile(f.Model, paths.Training)
	})
	if err := sched.Refit("startup"); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if s := f.Training.Retrain.Schedule; s != "" {
		if err := sched.Schedule(s); err != nil {
			return nil, err
		}
	}
	if f.Training.Retrain.Watch {
		if err := sched.Watch(paths.Training); err != nil {
			return nil, fmt.Errorf("retrain: %w", err)
		}
	}

	// 2. transport server
	srv, err := transport.StartServer(cfg.GRPCPort, models)
	if err != nil {
		sched.Stop()
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 3. stream runner, when a source is declared
	var runner *stream.Runner
	if f.Source.Kind != "" {
		runner, err = stream.Compile(f, paths, models)
		if err == nil {
			err = runner.Start(ctx)
		}
		if err != nil {
			sched.Stop()
			srv.Stop()
			if runner != nil {
				_ = runner.Close()
			}
			return nil, fmt.Errorf("stream: %w", err)
		}
	}

	// 4. metrics
	var metrics *http.Server
	if cfg.MetricsPort > 0 {
		metrics = telemetry.Expose(cfg.MetricsPort)
	}

	sched.Start(ctx)
	log.Info("engine ready",
		"grpc", srv.Addr().String(),
		"metrics_port", cfg.MetricsPort,
		"stream", runner != nil,
		"steps", len(models.Current().Steps()))

	return &Engine{
		models:    models,
		retrain:   sched,
		transport: srv,
		runner:    runner,
		metrics:   metrics,
	}, nil
}
