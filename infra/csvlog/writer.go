// Package csvlog persists measurement records as an append-only CSV file
// compatible with the bench's existing analysis tooling.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/UWCubeSat/hs2-egse/core/model"
)

var header = []string{"elapsed_seconds", "voltage_volts", "current_amps", "power_watts"}

// Writer implements telemetry.Recorder over a CSV file. Each Append is
// flushed and fsynced before returning so an interrupted session leaves a
// valid, readable prefix of the log.
type Writer struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// New creates a Writer for the given path. The file is not touched until
// Start.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Start creates or truncates the sink and writes the header row.
func (w *Writer) Start() error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create telemetry log %s: %w", w.path, err)
	}
	w.f = f
	w.w = csv.NewWriter(f)
	if err := w.w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return f.Sync()
}

// Append serializes one record and durably commits it. Elapsed is written
// with millisecond resolution, measurements with four decimals to match the
// instrument's resolution.
func (w *Writer) Append(rec model.MeasurementRecord) error {
	if w.w == nil {
		return fmt.Errorf("telemetry log %s not started", w.path)
	}
	row := []string{
		strconv.FormatFloat(rec.Elapsed.Seconds(), 'f', 3, 64),
		strconv.FormatFloat(rec.Voltage, 'f', 4, 64),
		strconv.FormatFloat(rec.Current, 'f', 4, 64),
		strconv.FormatFloat(rec.Power, 'f', 4, 64),
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return w.f.Sync()
}

// Close releases the file handle.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	w.w.Flush()
	err := w.f.Close()
	w.f = nil
	w.w = nil
	return err
}

// Path reports the sink location.
func (w *Writer) Path() string { return w.path }
