// Package retrain keeps the serving pipeline fresh: it refits on a cron
// schedule and, optionally, whenever the training file changes. Readers see
// either the old or the new pipeline, never a partially fitted one.
package retrain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron"

	"titanic/internal/logging"
	"titanic/internal/pipeline"
	"titanic/internal/telemetry"
)

// Holder publishes the pipeline currently serving predictions.
type Holder struct {
	cur atomic.Pointer[pipeline.Pipeline]
	gen atomic.Int64
}

func (h *Holder) Current() *pipeline.Pipeline { return h.cur.Load() }

// Generation counts the pipelines published so far.
func (h *Holder) Generation() int64 { return h.gen.Load() }

// Swap publishes p. A nil p is ignored.
func (h *Holder) Swap(p *pipeline.Pipeline) {
	if p == nil {
		return
	}
	h.cur.Store(p)
	telemetry.ModelGeneration.Set(float64(h.gen.Add(1)))
}

// TrainFunc fits a fresh pipeline.
type TrainFunc func() (*pipeline.Pipeline, error)

// DefaultDebounce coalesces the burst of events an editor or a copy produces.
const DefaultDebounce = 500 * time.Millisecond

type Scheduler struct {
	holder *Holder
	train  TrainFunc

	Debounce time.Duration

	fitMu sync.Mutex // one refit at a time

	cron     *cron.Cron
	watcher  *fsnotify.Watcher
	watched  string
	lastMod  time.Time
	stopOnce sync.Once
}

func NewScheduler(h *Holder, train TrainFunc) *Scheduler {
	return &Scheduler{holder: h, train: train, Debounce: DefaultDebounce, cron: cron.New()}
}

// Refit trains a new pipeline and publishes it. On failure the serving
// pipeline is left in place.
func (s *Scheduler) Refit(reason string) error {
	s.fitMu.Lock()
	defer s.fitMu.Unlock()

	log := logging.With("retrain")
	start := time.Now()
	p, err := s.train()
	if err != nil {
		log.Error("refit failed, keeping current pipeline", "reason", reason, "err", err)
		return err
	}
	s.holder.Swap(p)
	log.Info("pipeline replaced", "reason", reason, "generation", s.holder.Generation(), "took", time.Since(start))
	return nil
}

// Schedule refits on a cron spec such as "@every 24h" or "0 0 3 * * *".
func (s *Scheduler) Schedule(spec string) error {
	if err := s.cron.AddFunc(spec, func() { _ = s.Refit("schedule") }); err != nil {
		return fmt.Errorf("retrain schedule %q: %w", spec, err)
	}
	return nil
}

// Watch refits whenever path is written, created or renamed into place. The
// parent directory is watched so that atomic replacements are seen too.
func (s *Scheduler) Watch(path string) error {
	if s.watcher != nil {
		return errors.New("retrain: already watching " + s.watched)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return err
	}
	if info, err := os.Stat(abs); err == nil {
		s.lastMod = info.ModTime()
	}
	s.watcher, s.watched = w, abs
	return nil
}

// Start runs the schedule and the watcher until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	if s.watcher != nil {
		go s.watch(ctx)
	}
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cron.Stop()
		if s.watcher != nil {
			s.watcher.Close()
		}
	})
}

func (s *Scheduler) watch(ctx context.Context) {
	log := logging.With("retrain")
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.Debounce)
				fire = timer.C
			} else {
				timer.Reset(s.Debounce)
			}
		case <-fire:
			timer, fire = nil, nil
			if !s.changed() {
				continue
			}
			_ = s.Refit("training data changed")
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "err", err)
		}
	}
}

// changed reports whether the file's modification time moved forward.
func (s *Scheduler) changed() bool {
	info, err := os.Stat(s.watched)
	if err != nil {
		return false
	}
	if !info.ModTime().After(s.lastMod) {
		return false
	}
	s.lastMod = info.ModTime()
	return true
}
