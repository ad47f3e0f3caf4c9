// Package schedule holds the discharge current schedule: an ordered list of
// (time offset, current setpoint) points answering "what current should be
// commanded at elapsed time t".
package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"
)

// ErrNotFound indicates the schedule source could not be opened.
var ErrNotFound = errors.New("schedule not found")

// FormatError describes a malformed schedule row.
type FormatError struct {
	Row int // 1-based data row, 0 for the header
	Err error
}

func (e *FormatError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("schedule header: %v", e.Err)
	}
	return fmt.Sprintf("schedule row %d: %v", e.Row, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Point defines when a new current setpoint takes effect.
type Point struct {
	Offset   time.Duration
	Setpoint float64 // amperes
}

// Schedule is an immutable sequence of points sorted ascending by offset.
// Offsets need not be unique; under CurrentAt the later of two equal offsets
// wins because the sort is stable and the scan keeps the last match.
type Schedule struct {
	points []Point
}

// New builds a Schedule from points, validating and stable-sorting them.
func New(points []Point) (*Schedule, error) {
	for i, p := range points {
		if p.Offset < 0 {
			return nil, fmt.Errorf("point %d: negative offset %v", i, p.Offset)
		}
		if p.Setpoint < 0 {
			return nil, fmt.Errorf("point %d: negative setpoint %v", i, p.Setpoint)
		}
	}
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	return &Schedule{points: sorted}, nil
}

// Load parses a schedule from CSV with named columns time_seconds and
// current_amps. Column order on disk is insignificant.
func Load(r io.Reader) (*Schedule, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, &FormatError{Err: fmt.Errorf("read header: %w", err)}
	}
	timeCol, currentCol := -1, -1
	for i, name := range header {
		switch name {
		case "time_seconds":
			timeCol = i
		case "current_amps":
			currentCol = i
		}
	}
	if timeCol < 0 || currentCol < 0 {
		return nil, &FormatError{Err: errors.New("expected columns time_seconds,current_amps")}
	}

	var points []Point
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Row: row, Err: err}
		}
		if timeCol >= len(rec) || currentCol >= len(rec) {
			return nil, &FormatError{Row: row, Err: errors.New("missing required fields")}
		}
		secs, err := strconv.ParseFloat(rec[timeCol], 64)
		if err != nil {
			return nil, &FormatError{Row: row, Err: fmt.Errorf("time_seconds: %w", err)}
		}
		amps, err := strconv.ParseFloat(rec[currentCol], 64)
		if err != nil {
			return nil, &FormatError{Row: row, Err: fmt.Errorf("current_amps: %w", err)}
		}
		if secs < 0 {
			return nil, &FormatError{Row: row, Err: fmt.Errorf("negative time_seconds %v", secs)}
		}
		if amps < 0 {
			return nil, &FormatError{Row: row, Err: fmt.Errorf("negative current_amps %v", amps)}
		}
		points = append(points, Point{
			Offset:   time.Duration(secs * float64(time.Second)),
			Setpoint: amps,
		})
	}
	return New(points)
}

// LoadFile loads a schedule from a CSV file. An unreadable path yields an
// error wrapping ErrNotFound.
func LoadFile(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle
	return Load(f)
}

// CurrentAt returns the setpoint of the last point whose offset has been
// reached at the given elapsed time. Before the first point's offset the
// schedule is pinned at the first point's setpoint. An empty schedule always
// returns zero.
func (s *Schedule) CurrentAt(elapsed time.Duration) float64 {
	if len(s.points) == 0 {
		return 0
	}
	target := s.points[0].Setpoint
	for _, p := range s.points {
		if elapsed >= p.Offset {
			target = p.Setpoint
		} else {
			break
		}
	}
	return target
}

// Points returns a copy of the sorted schedule points.
func (s *Schedule) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Len reports the number of schedule points.
func (s *Schedule) Len() int { return len(s.points) }
