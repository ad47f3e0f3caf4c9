package csvlog

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UWCubeSat/hs2-egse/core/model"
)

func TestStartWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	w := New(path)
	require.NoError(t, w.Start())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "elapsed_seconds,voltage_volts,current_amps,power_watts\n", string(data))
}

func TestAppendFormatting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	w := New(path)
	require.NoError(t, w.Start())
	require.NoError(t, w.Append(model.MeasurementRecord{
		Elapsed: 1234 * time.Millisecond,
		Voltage: 3.9876,
		Current: 1.5,
		Power:   5.9315,
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1.234,3.9876,1.5000,5.9315", lines[1]) // .3f / .4f fixed point
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	w := New(path)
	require.NoError(t, w.Start())

	want := []model.MeasurementRecord{
		{Elapsed: 0, Voltage: 4.2, Current: 0.5, Power: 2.1},
		{Elapsed: time.Second, Voltage: 4.1503, Current: 1.0, Power: 4.1503},
		{Elapsed: 2 * time.Second, Voltage: 4.0999, Current: 1.0, Power: 4.0999},
	}
	for _, rec := range want {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	got, err := ReadLogFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].Elapsed.Seconds(), got[i].Elapsed.Seconds(), 0.0005)
		assert.InDelta(t, want[i].Voltage, got[i].Voltage, 0.00005)
		assert.InDelta(t, want[i].Current, got[i].Current, 0.00005)
		assert.InDelta(t, want[i].Power, got[i].Power, 0.00005)
	}
}

func TestPrefixReadableAfterInterrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	w := New(path)
	require.NoError(t, w.Start())
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(model.MeasurementRecord{
			Elapsed: time.Duration(i) * time.Second,
			Voltage: 4.2 - 0.01*float64(i),
		}))
	}
	// A crashed session never calls Close; every append was already synced,
	// so the file must parse as-is.
	got, err := ReadLogFile(path)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Elapsed > got[i-1].Elapsed)
		assert.False(t, math.IsNaN(got[i].Voltage))
	}
	require.NoError(t, w.Close())
}

func TestAppendBeforeStart(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "log.csv"))
	assert.Error(t, w.Append(model.MeasurementRecord{}))
}

func TestStartUnwritablePath(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "log.csv"))
	assert.Error(t, w.Start())
}
