package smu

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// simNoiseFraction is the relative measurement noise of the simulated
// instrument.
const simNoiseFraction = 0.01

// simChannel holds the programmed state of one simulated channel.
type simChannel struct {
	voltageSource bool
	level         float64
	limit         float64
	output        bool
}

// SimAdapter is a software stand-in for a two-channel SMU driving a
// resistive load. It obeys the programmed source level and clamps the
// measured quantity at the compliance limit, with a little noise on
// top, so capability and sweep logic can be exercised without
// hardware.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type SimAdapter struct {
	mu       sync.Mutex
	open     bool
	channels map[Channel]*simChannel

	resistance float64
	rng        *rand.Rand

	// Commands records every primitive operation, newest last.
	// Tests use it to assert that rejected calls issue nothing.
	commands []string

	// failNext, when set, fails the next primitive operation.
	failNext error
}

// NewSimAdapter creates a simulated SMU with the given load resistance.
func NewSimAdapter(resistanceOhms float64) *SimAdapter {
	if resistanceOhms <= 0 {
		resistanceOhms = 1000
	}
	return &SimAdapter{
		channels: map[Channel]*simChannel{
			ChannelA: {},
			ChannelB: {},
		},
		resistance: resistanceOhms,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// FailNext injects an error into the next primitive operation.
func (a *SimAdapter) FailNext(err error) {
	a.mu.Lock()
	a.failNext = err
	a.mu.Unlock()
}

// Commands returns a copy of the recorded command log.
func (a *SimAdapter) Commands() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.commands))
	copy(out, a.commands)
	return out
}

// Open establishes the simulated connection.
func (a *SimAdapter) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.record("open", func(*simChannel) {}, ChannelA)
}

// Close releases the simulated connection.
func (a *SimAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.open = false
	return nil
}

// Identify returns a fixed identification string.
func (a *SimAdapter) Identify(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return "", err
	}
	a.commands = append(a.commands, "identify")
	return "Simulated Instruments Inc., Model 2602, 0, 1.0.0", nil
}

// SetSourceFunction selects voltage or current sourcing.
func (a *SimAdapter) SetSourceFunction(ctx context.Context, ch Channel, voltageSource bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.record(fmt.Sprintf("source.func %s voltage=%t", ch, voltageSource), func(c *simChannel) {
		c.voltageSource = voltageSource
	}, ch)
}

// SetSourceLevel programs the source level.
func (a *SimAdapter) SetSourceLevel(ctx context.Context, ch Channel, voltageSource bool, level float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.record(fmt.Sprintf("source.level %s %g", ch, level), func(c *simChannel) {
		c.voltageSource = voltageSource
		c.level = level
	}, ch)
}

// SetLimit programs the compliance limit.
func (a *SimAdapter) SetLimit(ctx context.Context, ch Channel, voltageSource bool, limit float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.record(fmt.Sprintf("source.limit %s %g", ch, limit), func(c *simChannel) {
		c.limit = limit
	}, ch)
}

// SetOutput switches the channel output.
func (a *SimAdapter) SetOutput(ctx context.Context, ch Channel, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.record(fmt.Sprintf("source.output %s on=%t", ch, on), func(c *simChannel) {
		c.output = on
	}, ch)
}

// MeasureIV models a resistive load: sourcing voltage yields V/R plus
// noise, sourcing current yields I*R plus noise, each clamped at the
// compliance limit.
func (a *SimAdapter) MeasureIV(ctx context.Context, ch Channel) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.takeFailure(); err != nil {
		return 0, 0, err
	}

	c, ok := a.channels[ch]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
	}

	a.commands = append(a.commands, fmt.Sprintf("measure.iv %s", ch))

	if !c.output {
		return 0, 0, nil
	}

	noise := 1 + simNoiseFraction*(a.rng.Float64()*2-1)

	var current, voltage float64
	if c.voltageSource {
		voltage = c.level
		current = voltage / a.resistance * noise
		current = clampMagnitude(current, c.limit)
	} else {
		current = c.level
		voltage = current * a.resistance * noise
		voltage = clampMagnitude(voltage, c.limit)
	}
	return current, voltage, nil
}

// Reset restores a channel to defaults.
func (a *SimAdapter) Reset(ctx context.Context, ch Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.record(fmt.Sprintf("reset %s", ch), func(c *simChannel) {
		*c = simChannel{}
	}, ch)
}

// record logs one primitive operation and applies it to the channel.
func (a *SimAdapter) record(entry string, apply func(*simChannel), ch Channel) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.takeFailure(); err != nil {
		return err
	}

	c, ok := a.channels[ch]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
	}

	a.commands = append(a.commands, entry)
	if entry == "open" {
		a.open = true
		return nil
	}
	apply(c)
	return nil
}

// takeFailure consumes an injected failure. Callers must hold a.mu.
func (a *SimAdapter) takeFailure() error {
	if a.failNext != nil {
		err := a.failNext
		a.failNext = nil
		return err
	}
	return nil
}

// clampMagnitude limits v to ±limit, preserving sign.
func clampMagnitude(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	if math.Abs(v) > limit {
		return math.Copysign(limit, v)
	}
	return v
}
