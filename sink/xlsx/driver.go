// Package xlsx writes predictions to a spreadsheet report, one row per
// record. The workbook is saved after every batch and on Close.
package xlsx

import (
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"titanic/sink"
)

const defaultSheet = "predictions"

type Config struct {
	Path          string   `yaml:"path"`
	Sheet         string   `yaml:"sheet"`
	SkipRejected  bool     `yaml:"skip_rejected"`
	RecordColumns []string `yaml:"record_columns"` // copied from the input record
}

var defaultRecordColumns = []string{"name", "sex", "age", "pclass"}

type driver struct {
	cfg Config

	mu    sync.Mutex
	f     *excelize.File
	row   int
	dirty bool
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("xlsx-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return fmt.Errorf("xlsx-sink: path is required")
	}
	if c.Sheet == "" {
		c.Sheet = defaultSheet
	}
	if c.RecordColumns == nil {
		c.RecordColumns = defaultRecordColumns
	}
	d.cfg = c

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", c.Sheet); err != nil {
		return fmt.Errorf("xlsx-sink: %w", err)
	}
	header := []any{"key", "topic", "partition", "offset"}
	for _, col := range c.RecordColumns {
		header = append(header, col)
	}
	header = append(header, "survived", "probability", "errors")
	if err := f.SetSheetRow(c.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx-sink: %w", err)
	}
	d.f, d.row, d.dirty = f, 1, true
	return nil
}

func (d *driver) Push(p sink.Prediction) error {
	if d.cfg.SkipRejected && p.Rejected() {
		return nil
	}
	values := []any{string(p.Key), p.Checkpoint.Topic, p.Checkpoint.Partition, p.Checkpoint.Offset}
	for _, col := range d.cfg.RecordColumns {
		values = append(values, p.Record[col])
	}
	if p.Rejected() {
		values = append(values, nil, nil, p.Errors.Error())
	} else {
		values = append(values, p.Survived, p.Probability, "")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return fmt.Errorf("xlsx-sink: not configured")
	}
	cell, err := excelize.CoordinatesToCellName(1, d.row+1)
	if err != nil {
		return err
	}
	if err := d.f.SetSheetRow(d.cfg.Sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx-sink: row %d: %w", d.row+1, err)
	}
	d.row++
	d.dirty = true
	return nil
}

/* ────────── sink.Flusher ────────── */
func (d *driver) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked()
}

func (d *driver) saveLocked() error {
	if d.f == nil || !d.dirty {
		return nil
	}
	if err := d.f.SaveAs(d.cfg.Path); err != nil {
		return fmt.Errorf("xlsx-sink: save %s: %w", d.cfg.Path, err)
	}
	d.dirty = false
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.saveLocked()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	d.f = nil
	return err
}

func init() {
	sink.Register("xlsx", func() sink.Adapter { return &driver{} })
}
