package smu

import "context"

// Channel identifies one source-measure channel.
type Channel string

// Channels of a two-channel instrument.
const (
	ChannelA Channel = "a"
	ChannelB Channel = "b"
)

// AllChannels returns every valid channel.
func AllChannels() []Channel {
	return []Channel{ChannelA, ChannelB}
}

// Adapter wraps exactly one source-measure unit class and exposes
// primitive operations only. No argument validation or sequencing
// logic lives here; that is the capability's job.
//
// Implementations wrap transport faults with instrument.ErrDeviceComm.
type Adapter interface {
	// Open establishes the physical connection.
	Open(ctx context.Context) error

	// Close releases the physical connection.
	Close() error

	// Identify returns the instrument identification string.
	Identify(ctx context.Context) (string, error)

	// SetSourceFunction selects voltage or current sourcing.
	SetSourceFunction(ctx context.Context, ch Channel, voltageSource bool) error

	// SetSourceLevel programs the source level in volts or amps,
	// matching the selected source function.
	SetSourceLevel(ctx context.Context, ch Channel, voltageSource bool, level float64) error

	// SetLimit programs the compliance limit: a current limit when
	// sourcing voltage, a voltage limit when sourcing current.
	SetLimit(ctx context.Context, ch Channel, voltageSource bool, limit float64) error

	// SetOutput switches the channel output on or off.
	SetOutput(ctx context.Context, ch Channel, on bool) error

	// MeasureIV reads current and voltage in one operation.
	MeasureIV(ctx context.Context, ch Channel) (current, voltage float64, err error)

	// Reset restores the channel to power-on defaults.
	Reset(ctx context.Context, ch Channel) error
}
