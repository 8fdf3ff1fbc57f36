package kafka

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanic/internal/frame"
)

type fakeSession struct {
	ctx context.Context

	mu      sync.Mutex
	marked  []int64
	commits int
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "m" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) Commit() {
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
}

func (s *fakeSession) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}

func (s *fakeSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeClaim struct{ ch chan *sarama.ConsumerMessage }

func (c *fakeClaim) Topic() string                            { return "passengers" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func message(off int64) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic: "passengers", Partition: 0, Offset: off,
		Key: []byte("k"), Value: []byte(`{"name":"Dr. Who"}`),
		Headers: []*sarama.RecordHeader{{Key: []byte("src"), Value: []byte("test")}},
	}
}

func newTestDriver(mode CommitMode, inFlight int) *SaramaDriver {
	d := &SaramaDriver{}
	d.init(Config{CommitMode: mode, MaxInFlight: inFlight, CommitInterval: time.Hour})
	return d
}

func TestConsumeClaim_AutoModeMarksOnEmit(t *testing.T) {
	d := newTestDriver(CommitAuto, 4)
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 3)}
	for i := int64(0); i < 3; i++ {
		claim.ch <- message(i)
	}
	close(claim.ch)

	var got []*frame.Frame
	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error { got = append(got, f); return nil }}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claim))
	require.Len(t, got, 3)
	assert.Equal(t, frame.Offset{Topic: "passengers", Partition: 0, Offset: 2}, got[2].Checkpoint)
	assert.Equal(t, []byte("test"), got[0].Headers["src"])
	assert.Equal(t, []int64{0, 1, 2}, sess.markedOffsets())
	assert.Equal(t, 0, d.window.InFlight())
}

func TestConsumeClaim_E2EWaitsForAck(t *testing.T) {
	d := newTestDriver(CommitE2E, 2)
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 3)}
	for i := int64(0); i < 3; i++ {
		claim.ch <- message(i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{ctx: ctx}

	emitted := make(chan frame.Offset, 3)
	h := &groupHandler{driver: d, emit: func(f *frame.Frame) error { emitted <- f.Checkpoint; return nil }}
	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(sess, claim) }()

	first, second := <-emitted, <-emitted
	select {
	case off := <-emitted:
		t.Fatalf("window of 2 should block a third record, got %+v", off)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, sess.markedOffsets())

	d.OnAck(first)
	third := <-emitted
	assert.Equal(t, int64(2), third.Offset)
	d.OnAck(second)
	d.OnAck(third)

	require.Eventually(t, func() bool { return len(sess.markedOffsets()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{0, 1, 2}, sess.markedOffsets())
}

func TestConsumeClaim_EmitErrorStopsClaim(t *testing.T) {
	d := newTestDriver(CommitE2E, 4)
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 1)}
	claim.ch <- message(7)
	boom := errors.New("boom")
	h := &groupHandler{driver: d, emit: func(*frame.Frame) error { return boom }}

	err := h.ConsumeClaim(&fakeSession{ctx: context.Background()}, claim)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, d.pending)
	assert.Equal(t, 0, d.window.InFlight())
}

func TestCleanup_DropsPendingAndReleasesWindow(t *testing.T) {
	d := newTestDriver(CommitE2E, 4)
	require.True(t, d.window.TryAcquire())
	d.pending[frame.Offset{Topic: "t", Offset: 1}] = func() {}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, (&groupHandler{driver: d}).Cleanup(sess))
	assert.Empty(t, d.pending)
	assert.Equal(t, 0, d.window.InFlight())
	assert.Equal(t, 1, sess.commits)
}

func TestOnAck_UnknownOffsetIgnored(t *testing.T) {
	d := newTestDriver(CommitE2E, 1)
	d.OnAck(frame.Offset{Topic: "t", Offset: 9})
	d.resolve(<-d.ackCh)
	assert.Equal(t, 0, d.window.InFlight())
}

func TestCommitClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := newCommitClock(time.Second)
	c.now = func() time.Time { return now }

	assert.True(t, c.Due())
	assert.False(t, c.Due())
	now = now.Add(time.Second)
	assert.True(t, c.Due())
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kafka_source.yml")
	require.NoError(t, os.WriteFile(path, []byte(`schema_version: v1
brokers: [localhost:9092]
topics: [passengers]
group_id: scorer
commit_mode: e2e
commit_interval: 2s
`), 0o644))
	t.Setenv("TITANIC_KAFKA__BROKERS", "b1:9092, b2:9092")
	t.Setenv("TITANIC_KAFKA__MAX_IN_FLIGHT", "16")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	assert.Equal(t, []string{"passengers"}, cfg.Topics)
	assert.Equal(t, CommitE2E, cfg.CommitMode)
	assert.Equal(t, 16, cfg.MaxInFlight)
	assert.Equal(t, 2*time.Second, cfg.CommitInterval)
	assert.Equal(t, "newest", cfg.StartFrom)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("schema_version: v2\n"), 0o644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "absent.yml"))
	assert.Error(t, err, "brokers are required")
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter("sarama")
	require.NoError(t, err)
	assert.IsType(t, &SaramaDriver{}, a)

	_, err = NewAdapter("confluent")
	assert.Error(t, err)
}

func TestOnAck_AutoModeIgnored(t *testing.T) {
	d := newTestDriver(CommitAuto, 2)
	d.OnAck(frame.Offset{Topic: "t", Offset: 1})
	assert.Empty(t, d.ackCh)
}

func TestOnAck_FullChannelResolvesInPlace(t *testing.T) {
	d := newTestDriver(CommitE2E, 1)
	require.True(t, d.window.TryAcquire())
	off := frame.Offset{Topic: "t", Offset: 1}
	marked := false
	d.pending[off] = func() { marked = true }
	d.ackCh <- frame.Offset{Topic: "t", Offset: 99}

	d.OnAck(off)

	assert.True(t, marked, "ack must not be dropped")
	assert.Empty(t, d.pending)
	assert.Equal(t, 0, d.window.InFlight())
	assert.Len(t, d.ackCh, 1)
}
