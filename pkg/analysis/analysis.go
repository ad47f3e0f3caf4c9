// Package analysis computes offline summary statistics for a recorded
// discharge log.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/UWCubeSat/hs2-egse/core/model"
)

// Summary aggregates one discharge log.
type Summary struct {
	Samples    int
	Duration   time.Duration
	MinVolts   float64
	MaxVolts   float64
	MeanVolts  float64
	MeanAmps   float64
	CapacityAh float64 // discharged capacity, trapezoidal integral of current
	EnergyWh   float64 // discharged energy, trapezoidal integral of power
}

// Summarize reduces records to a Summary. Records must be in log order with
// strictly increasing elapsed times.
func Summarize(recs []model.MeasurementRecord) (Summary, error) {
	if len(recs) == 0 {
		return Summary{}, errors.New("empty log")
	}
	hours := make([]float64, len(recs))
	volts := make([]float64, len(recs))
	amps := make([]float64, len(recs))
	watts := make([]float64, len(recs))
	for i, r := range recs {
		if i > 0 && r.Elapsed <= recs[i-1].Elapsed {
			return Summary{}, fmt.Errorf("record %d: elapsed %v not increasing", i, r.Elapsed)
		}
		hours[i] = r.Elapsed.Hours()
		volts[i] = r.Voltage
		amps[i] = r.Current
		watts[i] = r.Power
	}

	s := Summary{
		Samples:   len(recs),
		Duration:  recs[len(recs)-1].Elapsed - recs[0].Elapsed,
		MinVolts:  floats.Min(volts),
		MaxVolts:  floats.Max(volts),
		MeanVolts: stat.Mean(volts, nil),
		MeanAmps:  stat.Mean(amps, nil),
	}
	if len(recs) > 1 {
		s.CapacityAh = integrate.Trapezoidal(hours, amps)
		s.EnergyWh = integrate.Trapezoidal(hours, watts)
	}
	return s, nil
}

// WriteText renders the summary for the operator.
func WriteText(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w,
		"samples:    %d\n"+
			"duration:   %s\n"+
			"voltage:    min %.4f V, max %.4f V, mean %.4f V\n"+
			"current:    mean %.4f A\n"+
			"discharged: %.4f Ah, %.4f Wh\n",
		s.Samples, s.Duration, s.MinVolts, s.MaxVolts, s.MeanVolts, s.MeanAmps,
		s.CapacityAh, s.EnergyWh)
	return err
}
