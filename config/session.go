package config

import (
	"fmt"
	"time"
)

// SessionConfig tunes the control/sampling loop.
type SessionConfig struct {
	// SamplingIntervalSeconds is the period between telemetry captures.
	SamplingIntervalSeconds float64 `json:"sampling_interval_seconds"`
	// MaxLogFailures escalates persistent telemetry sink failures to
	// session-fatal after this many consecutive append errors.
	MaxLogFailures int `json:"max_log_failures"`
}

// SetDefaults applies sane defaults.
func (c *SessionConfig) SetDefaults() {
	if c.SamplingIntervalSeconds == 0 {
		c.SamplingIntervalSeconds = 1.0
	}
	if c.MaxLogFailures == 0 {
		c.MaxLogFailures = 10
	}
}

// Validate checks mandatory fields.
func (c SessionConfig) Validate() error {
	if c.SamplingIntervalSeconds <= 0 {
		return fmt.Errorf("sampling_interval_seconds must be positive")
	}
	if c.MaxLogFailures <= 0 {
		return fmt.Errorf("max_log_failures must be positive")
	}
	return nil
}

// SamplingInterval returns the interval as a duration.
func (c SessionConfig) SamplingInterval() time.Duration {
	return time.Duration(c.SamplingIntervalSeconds * float64(time.Second))
}
