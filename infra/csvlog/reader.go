package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/UWCubeSat/hs2-egse/core/model"
)

// ReadLog parses a telemetry log back into measurement records. It is used
// by the analyze command and by round-trip tests.
func ReadLog(r io.Reader) ([]model.MeasurementRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	got, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range header {
		if got[i] != name {
			return nil, fmt.Errorf("unexpected header column %q, want %q", got[i], name)
		}
	}
	var recs []model.MeasurementRecord
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		vals := make([]float64, len(fields))
		for i, s := range fields {
			vals[i], err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}
		recs = append(recs, model.MeasurementRecord{
			Elapsed: time.Duration(vals[0] * float64(time.Second)),
			Voltage: vals[1],
			Current: vals[2],
			Power:   vals[3],
		})
	}
	return recs, nil
}

// ReadLogFile opens and parses a telemetry log file.
func ReadLogFile(path string) ([]model.MeasurementRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only handle
	return ReadLog(f)
}
