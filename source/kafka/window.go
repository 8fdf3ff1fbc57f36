package kafka

import (
	"sync"
	"sync/atomic"
	"time"
)

// Window bounds the number of records handed to the scorer but not yet
// acknowledged.
type Window struct {
	mu       sync.Mutex
	capacity int
	used     int
}

func NewWindow(capacity int) *Window { return &Window{capacity: capacity} }

func (w *Window) TryAcquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.used >= w.capacity {
		return false
	}
	w.used++
	return true
}

func (w *Window) Release(n int) {
	w.mu.Lock()
	w.used -= n
	if w.used < 0 {
		w.used = 0
	}
	w.mu.Unlock()
}

func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.used
}

// commitClock reports when marked offsets should be flushed.
type commitClock struct {
	every int64
	last  atomic.Int64
	now   func() time.Time
}

func newCommitClock(every time.Duration) *commitClock {
	return &commitClock{every: every.Nanoseconds(), now: time.Now}
}

// Due returns true at most once per interval.
func (c *commitClock) Due() bool {
	now := c.now().UnixNano()
	last := c.last.Load()
	if last+c.every > now {
		return false
	}
	return c.last.CompareAndSwap(last, now)
}
