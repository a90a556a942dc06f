package archive

import "time"

// Point is a single sourced-and-measured step within a sweep.
type Point struct {
	// Level is the programmed source level (volts or amps).
	Level float64 `json:"level"`

	// Voltage is the measured terminal voltage in volts.
	Voltage float64 `json:"voltage"`

	// Current is the measured terminal current in amps.
	Current float64 `json:"current"`
}

// SweepRecord is a completed (or aborted) sweep with its measured points.
type SweepRecord struct {
	// ID is the UUID assigned when the sweep started.
	ID string `json:"id"`

	// ProfileID and ProfileName identify the sample profile that was
	// selected when the sweep ran. ProfileName is denormalised so the
	// record stays readable after the profile is deleted.
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name"`

	// DeviceID is the geometry selected on the profile, if any.
	DeviceID string `json:"device_id,omitempty"`

	// Channel is the SMU channel the sweep drove.
	Channel string `json:"channel"`

	// VoltageSweep is true when the source swept voltage and measured
	// current, false for the reverse.
	VoltageSweep bool `json:"voltage_sweep"`

	// Start, End and Step define the programmed level ramp.
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Step  float64 `json:"step"`

	// Limit is the compliance limit applied at every point.
	Limit float64 `json:"limit"`

	// SettleDelay is the dwell between programming a level and measuring.
	SettleDelay time.Duration `json:"settle_delay"`

	// Aborted is true when the sweep stopped early (cancellation or
	// instrument fault). Points measured before the stop are kept.
	Aborted bool `json:"aborted"`

	// StartedAt and CompletedAt bound the run.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Points holds the measured data in sweep order. List operations
	// leave this nil; GetSweep populates it.
	Points []Point `json:"points,omitempty"`
}
