package simulator

import (
	"sync"
	"time"
)

// Battery models a battery pack under discharge with a linear open-circuit
// voltage curve and a constant internal resistance.
type Battery struct {
	CapacityAh   float64 // rated capacity
	Soc          float64 // state of charge [0,1]
	FullVolts    float64 // open-circuit voltage at Soc=1
	EmptyVolts   float64 // open-circuit voltage at Soc=0
	InternalOhms float64
	mu           sync.Mutex
}

// DefaultBattery returns a 2S li-ion pack model suitable for bench rehearsal
// runs.
func DefaultBattery() *Battery {
	return &Battery{
		CapacityAh:   3.0,
		Soc:          1.0,
		FullVolts:    8.4,
		EmptyVolts:   6.0,
		InternalOhms: 0.08,
	}
}

// Drain removes charge at the given current for dt. Soc is clamped to [0,1];
// an exhausted battery stays at zero.
func (b *Battery) Drain(amps float64, dt time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amps <= 0 || dt <= 0 || b.CapacityAh <= 0 {
		return
	}
	b.Soc -= amps * dt.Hours() / b.CapacityAh
	if b.Soc < 0 {
		b.Soc = 0
	}
	if b.Soc > 1 {
		b.Soc = 1
	}
}

// OpenCircuitVolts returns the no-load terminal voltage at the current state
// of charge.
func (b *Battery) OpenCircuitVolts() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.EmptyVolts + b.Soc*(b.FullVolts-b.EmptyVolts)
}

// TerminalVolts returns the loaded terminal voltage at the given discharge
// current.
func (b *Battery) TerminalVolts(amps float64) float64 {
	v := b.OpenCircuitVolts() - amps*b.InternalOhms
	if v < 0 {
		v = 0
	}
	return v
}

// StateOfCharge returns the current SoC.
func (b *Battery) StateOfCharge() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Soc
}
