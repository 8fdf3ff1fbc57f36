package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/IBM/sarama"

	"titanic/internal/frame"
	"titanic/internal/logging"
)

type SaramaDriver struct {
	cfg    Config
	cl     sarama.Client
	group  sarama.ConsumerGroup
	window *Window
	clock  *commitClock

	mu      sync.Mutex
	pending map[frame.Offset]func()

	ackCh chan frame.Offset
}

func (d *SaramaDriver) Configure(config Config) error {
	d.init(config)

	ver, err := sarama.ParseKafkaVersion(config.Version)
	if err != nil {
		return err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}
	switch config.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if config.CommitMode == CommitE2E {
		sc.Consumer.Offsets.AutoCommit.Enable = false
	}

	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	d.group, err = sarama.NewConsumerGroupFromClient(config.GroupID, d.cl)
	return err
}

func (d *SaramaDriver) init(config Config) {
	d.cfg = config
	d.pending = make(map[frame.Offset]func())
	d.window = NewWindow(config.MaxInFlight)
	d.clock = newCommitClock(config.CommitInterval)
	d.ackCh = make(chan frame.Offset, config.MaxInFlight)
}

func (d *SaramaDriver) Run(ctx context.Context, emit EmitFunc) error {
	handler := &groupHandler{driver: d, emit: emit}
	go d.logErrors(ctx)

	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) logErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-d.group.Errors():
			if !ok {
				return
			}
			logging.L().Warn("sarama-driver: consumer error", "err", err)
		}
	}
}

func (d *SaramaDriver) Close() error {
	var errs []error
	if d.group != nil {
		errs = append(errs, d.group.Close())
	}
	if d.cl != nil && !d.cl.Closed() {
		errs = append(errs, d.cl.Close())
	}
	return errors.Join(errs...)
}

// OnAck marks a scored record as safe to commit. It is a no-op unless
// commit_mode is e2e. Acks normally reach the claim loop through ackCh so a
// claim waiting on a full window wakes up; when the channel is full the loop
// already has acks to drain, and the ack is resolved in place.
func (d *SaramaDriver) OnAck(off frame.Offset) {
	if d.cfg.CommitMode != CommitE2E {
		return
	}
	select {
	case d.ackCh <- off:
	default:
		d.resolve(off)
	}
}

// resolve runs the commit callback of an acknowledged record.
func (d *SaramaDriver) resolve(off frame.Offset) {
	d.mu.Lock()
	cb, ok := d.pending[off]
	if ok {
		delete(d.pending, off)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	cb()
	d.window.Release(1)
	logging.L().Debug("kafka ack released", "topic", off.Topic, "partition", off.Partition, "offset", off.Offset)
}

func (d *SaramaDriver) mark(sess sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	sess.MarkMessage(msg, "")
	if d.cfg.CommitMode == CommitE2E && d.clock.Due() {
		sess.Commit()
	}
}

type groupHandler struct {
	driver *SaramaDriver
	emit   EmitFunc
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	d := h.driver
	d.mu.Lock()
	dropped := len(d.pending)
	d.pending = make(map[frame.Offset]func())
	d.mu.Unlock()

	d.window.Release(dropped)
	if d.cfg.CommitMode == CommitE2E {
		sess.Commit()
	}
	if dropped > 0 {
		logging.L().Info("sarama-driver: rebalance, cleared pending acks", "count", dropped)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	d := h.driver
	for {
		// stop reading while the window is full; acks still flow
		msgs := claim.Messages()
		acquired := d.window.TryAcquire()
		if !acquired {
			msgs = nil
		}

		select {
		case <-sess.Context().Done():
			if acquired {
				d.window.Release(1)
			}
			return nil

		case off := <-d.ackCh:
			if acquired {
				d.window.Release(1)
			}
			d.resolve(off)

		case msg, ok := <-msgs:
			if !ok {
				d.window.Release(1)
				return nil
			}
			f := &frame.Frame{
				Key:        msg.Key,
				Value:      msg.Value,
				Headers:    toHeaderMap(msg.Headers),
				Timestamp:  msg.Timestamp,
				Checkpoint: frame.Offset{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset},
			}
			if d.cfg.CommitMode == CommitE2E {
				d.mu.Lock()
				d.pending[f.Checkpoint] = func() { d.mark(sess, msg) }
				d.mu.Unlock()
			}
			if err := h.emit(f); err != nil {
				d.mu.Lock()
				delete(d.pending, f.Checkpoint)
				d.mu.Unlock()
				d.window.Release(1)
				return err
			}
			if d.cfg.CommitMode != CommitE2E {
				d.mark(sess, msg)
				d.window.Release(1)
			}
		}
	}
}

func toHeaderMap(src []*sarama.RecordHeader) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[string(h.Key)] = h.Value
	}
	return out
}
