package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"

	"titanic/internal/retrain"
	"titanic/internal/stream"
	"titanic/internal/transport"
)

type Engine struct {
	models    *retrain.Holder
	retrain   *retrain.Scheduler
	transport *transport.Server
	runner    *stream.Runner
	metrics   *http.Server

	stopOnce sync.Once
	stopErr  error
}

// Models exposes the serving pipeline holder.
func (e *Engine) Models() *retrain.Holder { return e.models }

// Run serves gRPC until ctx is done, then shuts everything down.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = e.Stop()
	}()

	err := e.transport.Serve()
	if errors.Is(err, grpc.ErrServerStopped) {
		err = nil
	}
	if stopErr := e.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// Stop halts retraining, drains the gRPC server and the stream runner and
// closes the metrics endpoint. It is safe to call more than once.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() {
		e.retrain.Stop()
		e.transport.Stop()
		var errs []error
		if e.runner != nil {
			errs = append(errs, e.runner.Close())
		}
		if e.metrics != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			errs = append(errs, e.metrics.Shutdown(ctx))
			cancel()
		}
		e.stopErr = errors.Join(errs...)
	})
	return e.stopErr
}
