package retrain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanic/internal/pipeline"
)

func countingTrain(calls *atomic.Int32) TrainFunc {
	return func() (*pipeline.Pipeline, error) {
		calls.Add(1)
		return pipeline.New("logit", nil), nil
	}
}

func TestHolder_Swap(t *testing.T) {
	var h Holder
	assert.Nil(t, h.Current())

	h.Swap(nil)
	assert.Zero(t, h.Generation())

	p1, p2 := pipeline.New("a", nil), pipeline.New("b", nil)
	h.Swap(p1)
	h.Swap(p2)
	assert.Same(t, p2, h.Current())
	assert.EqualValues(t, 2, h.Generation())
}

func TestRefit_FailureKeepsServingPipeline(t *testing.T) {
	h := &Holder{}
	old := pipeline.New("old", nil)
	h.Swap(old)

	s := NewScheduler(h, func() (*pipeline.Pipeline, error) { return nil, errors.New("bad csv") })
	assert.EqualError(t, s.Refit("test"), "bad csv")
	assert.Same(t, old, h.Current())
	assert.EqualValues(t, 1, h.Generation())

	var calls atomic.Int32
	s = NewScheduler(h, countingTrain(&calls))
	require.NoError(t, s.Refit("test"))
	assert.NotSame(t, old, h.Current())
	assert.EqualValues(t, 2, h.Generation())
}

func TestSchedule(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(&Holder{}, countingTrain(&calls))
	assert.Error(t, s.Schedule("whenever you like"))
	require.NoError(t, s.Schedule("@every 1s"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_RefitsWhenTrainingFileReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(path, []byte("pclass,survived\n1,1\n"), 0o644))

	var calls atomic.Int32
	h := &Holder{}
	s := NewScheduler(h, countingTrain(&calls))
	s.Debounce = 20 * time.Millisecond
	require.NoError(t, s.Watch(path))
	assert.Error(t, s.Watch(path), "second watch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	tmp := filepath.Join(dir, "train.csv.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("pclass,survived\n1,1\n3,0\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(tmp, future, future))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return h.Generation() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load(), "burst coalesced into one refit")
}

func TestWatch_MissingDirectory(t *testing.T) {
	s := NewScheduler(&Holder{}, countingTrain(new(atomic.Int32)))
	assert.Error(t, s.Watch(filepath.Join(t.TempDir(), "nope", "train.csv")))
}
