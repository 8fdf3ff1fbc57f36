package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"titanic/internal/frame"
	"titanic/internal/logging"
	"titanic/internal/pipeline"
	"titanic/internal/telemetry"
	"titanic/internal/validation"
	"titanic/sink"
	"titanic/source/kafka"
)

var (
	ErrNoModel = errors.New("stream: no fitted model")
	errStopped = errors.New("stream: runner stopped")
)

// Models hands out the pipeline currently serving predictions.
type Models interface {
	Current() *pipeline.Pipeline
}

type Options struct {
	BatchSize   int
	FlushEvery  time.Duration
	SkipInvalid bool // rejected records are acknowledged but not sent to sinks
}

type Runner struct {
	source kafka.Adapter
	acker  kafka.Acker
	sinks  []sink.Adapter
	models Models
	schema validation.Schema
	opts   Options
	now    func() time.Time

	started   atomic.Bool
	frames    chan *frame.Frame
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func NewRunner(models Models, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 500 * time.Millisecond
	}
	return &Runner{
		models: models,
		schema: validation.Passenger(),
		opts:   opts,
		now:    time.Now,
		frames: make(chan *frame.Frame, opts.BatchSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *Runner) AddSink(s sink.Adapter) { r.sinks = append(r.sinks, s) }

func (r *Runner) SetSource(s kafka.Adapter) {
	r.source = s
	r.acker, _ = s.(kafka.Acker)
}

// Start runs the source and the batching loop in the background.
func (r *Runner) Start(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	if r.models == nil || r.models.Current() == nil {
		return ErrNoModel
	}
	r.started.Store(true)
	go r.loop(ctx)
	go func() {
		if err := r.source.Run(ctx, r.enqueue); err != nil && !errors.Is(err, errStopped) {
			logging.With("stream").Error("source stopped", "err", err)
		}
	}()
	return nil
}

// Close scores what is already queued, then closes the source and every sink.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)
		if r.started.Load() {
			<-r.done
		}
		var errs []error
		if r.source != nil {
			errs = append(errs, r.source.Close())
		}
		for _, s := range r.sinks {
			errs = append(errs, s.Close())
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}

/*──────── frame routing ───────*/

func (r *Runner) enqueue(f *frame.Frame) error {
	select {
	case r.frames <- f:
		return nil
	case <-r.stop:
		return errStopped
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	batch := make([]*frame.Frame, 0, r.opts.BatchSize)
	var (
		timer *time.Timer
		flush <-chan time.Time
	)
	process := func() {
		if timer != nil {
			timer.Stop()
			timer, flush = nil, nil
		}
		if len(batch) > 0 {
			r.process(batch)
			batch = batch[:0]
		}
	}
	for {
		select {
		case f := <-r.frames:
			batch = append(batch, f)
			if len(batch) >= r.opts.BatchSize {
				process()
			} else if timer == nil {
				timer = time.NewTimer(r.opts.FlushEvery)
				flush = timer.C
			}
		case <-flush:
			process()
		case <-ctx.Done():
			process()
			return
		case <-r.stop:
			r.drain(&batch)
			process()
			return
		}
	}
}

// drain moves frames the source already handed over into batch.
func (r *Runner) drain(batch *[]*frame.Frame) {
	for {
		select {
		case f := <-r.frames:
			*batch = append(*batch, f)
		default:
			return
		}
	}
}

// process scores one batch, pushes the outcomes to every sink, flushes the
// buffering sinks and finally acknowledges the frames to the source.
func (r *Runner) process(batch []*frame.Frame) {
	log := logging.With("stream")
	preds := r.score(batch)

	for _, s := range r.sinks {
		for _, p := range preds {
			if r.opts.SkipInvalid && p.Rejected() {
				continue
			}
			if err := s.Push(p); err != nil {
				telemetry.StreamRecords.WithLabelValues("sink_error").Inc()
				log.Error("sink push failed", "offset", p.Checkpoint.Offset, "err", err)
			}
		}
		if fl, ok := s.(sink.Flusher); ok {
			if err := fl.Flush(); err != nil {
				log.Error("sink flush failed", "err", err)
			}
		}
	}
	if r.acker != nil {
		for _, f := range batch {
			r.acker.OnAck(f.Checkpoint)
		}
	}
	log.Debug("batch processed", "records", len(batch))
}

// score validates the batch and runs the valid records through the current
// pipeline. Every frame yields exactly one Prediction, in order.
func (r *Runner) score(batch []*frame.Frame) []sink.Prediction {
	now := r.now()
	out := make([]sink.Prediction, len(batch))
	var (
		rows []map[string]any
		idx  []int // prediction index of each row
	)
	for i, f := range batch {
		out[i] = sink.Prediction{Checkpoint: f.Checkpoint, Key: f.Key, ScoredAt: now}
		rec, err := decodeRecord(f.Value)
		if err != nil {
			out[i].Errors = pipeline.RecordError(0, err)
			continue
		}
		out[i].Record = rec
		rows = append(rows, rec)
		idx = append(idx, i)
	}

	if len(rows) > 0 {
		r.scoreRows(out, rows, idx)
	}
	for _, p := range out {
		if p.Rejected() {
			telemetry.StreamRecords.WithLabelValues("rejected").Inc()
		} else {
			telemetry.StreamRecords.WithLabelValues("scored").Inc()
		}
	}
	return out
}

func (r *Runner) scoreRows(out []sink.Prediction, rows []map[string]any, idx []int) {
	model := r.models.Current()
	for k, res := range r.scoreWith(model, rows) {
		j := idx[k]
		out[j].Survived, out[j].Probability = res.Survived, res.Probability
		for _, e := range res.Errors {
			e.Row = 0
			out[j].Errors = append(out[j].Errors, e)
		}
	}
}

func (r *Runner) scoreWith(model *pipeline.Pipeline, rows []map[string]any) []pipeline.Result {
	if model == nil {
		out := make([]pipeline.Result, len(rows))
		for i := range out {
			out[i].Errors = pipeline.RecordError(i, ErrNoModel)
		}
		return out
	}
	return model.ScoreRecords(r.schema, rows)
}

func decodeRecord(b []byte) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	if rec == nil {
		return nil, errors.New("record is null")
	}
	return rec, nil
}
