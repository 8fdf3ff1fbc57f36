// titanic/sink/stdout/driver.go
package stdout

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"titanic/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	PrintCounter  bool `yaml:"print_counter"`   // prepend seq#
	PrintRecord   bool `yaml:"print_record"`    // include the input record
	OnlyRejected  bool `yaml:"only_rejected"`   // skip scored records
	ValueMaxBytes int  `yaml:"value_max_bytes"` // 0 = no truncation
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	out io.Writer

	mu  sync.Mutex // guards w and seq
	w   *bufio.Writer
	seq uint64
}

// New returns a stdout sink writing JSON lines to w; nil means os.Stdout.
func New(w io.Writer) sink.Adapter {
	if w == nil {
		w = os.Stdout
	}
	return &driver{out: w}
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg = c
	d.w = bufio.NewWriter(d.out)
	return nil
}

func (d *driver) Push(p sink.Prediction) error {
	if d.cfg.OnlyRejected && !p.Rejected() {
		return nil
	}
	b, err := sink.Encode(p, d.cfg.PrintRecord)
	if err != nil {
		return fmt.Errorf("stdout-sink: %w", err)
	}
	if d.cfg.ValueMaxBytes > 0 && len(b) > d.cfg.ValueMaxBytes {
		b = append(b[:d.cfg.ValueMaxBytes:d.cfg.ValueMaxBytes], "..."...)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return fmt.Errorf("stdout-sink: not configured")
	}
	if d.cfg.PrintCounter {
		d.seq++
		fmt.Fprintf(d.w, "[sink %06d] ", d.seq)
	}
	if _, err := d.w.Write(b); err != nil {
		return err
	}
	return d.w.WriteByte('\n')
}

/* ────────── sink.Flusher ────────── */
func (d *driver) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return nil
	}
	return d.w.Flush()
}

func (d *driver) Close() error { return d.Flush() }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return New(nil) })
}
