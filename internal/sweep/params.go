package sweep

import (
	"fmt"
	"math"
	"time"

	"github.com/elworkbench/workbench-core/internal/instrument/smu"
)

// Params describes one sweep run.
type Params struct {
	// Channel is the SMU channel to drive.
	Channel smu.Channel

	// VoltageSweep selects the swept quantity: voltage when true
	// (measuring current), current when false (measuring voltage).
	VoltageSweep bool

	// Start, End and Step define the level ramp. Step's sign must move
	// Start toward End; End is always measured even when the ramp does
	// not land on it exactly.
	Start float64
	End   float64
	Step  float64

	// Limit is the compliance limit applied at every point, in the
	// complementary unit of the swept quantity.
	Limit float64

	// SettleDelay overrides the configured dwell between programming a
	// level and measuring. Zero keeps the configured default.
	SettleDelay time.Duration

	// OnProgress, when set, is called after each measured point.
	OnProgress func(Progress)
}

// Progress reports sweep advancement to an OnProgress callback.
type Progress struct {
	// Point is the 1-based index of the point just measured.
	Point int

	// Total is the number of points the sweep will measure.
	Total int

	// Level is the source level at that point.
	Level float64
}

// levels expands the ramp into the concrete point list.
func (p Params) levels() []float64 {
	if p.Start == p.End {
		return []float64{p.Start}
	}

	span := p.End - p.Start
	n := int(math.Floor(span/p.Step+1e-9)) + 1
	out := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, p.Start+float64(i)*p.Step)
	}
	if math.Abs(out[len(out)-1]-p.End) > 1e-12 {
		out = append(out, p.End)
	}
	return out
}

// validate rejects malformed parameter sets before any hardware is
// touched. maxLevel is the instrument bound for the swept quantity and
// maxLimit the bound for the compliance limit.
func (p Params) validate(maxPoints int, maxLevel, maxLimit float64) error {
	for _, v := range []float64{p.Start, p.End, p.Step, p.Limit} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidParams)
		}
	}

	validChannel := false
	for _, ch := range smu.AllChannels() {
		if p.Channel == ch {
			validChannel = true
			break
		}
	}
	if !validChannel {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidParams, p.Channel)
	}

	if p.Step == 0 {
		return fmt.Errorf("%w: step must be non-zero", ErrInvalidParams)
	}
	if p.Start != p.End && (p.End-p.Start)*p.Step < 0 {
		return fmt.Errorf("%w: step direction does not reach end from start", ErrInvalidParams)
	}

	if math.Abs(p.Start) > maxLevel || math.Abs(p.End) > maxLevel {
		return fmt.Errorf("%w: level range exceeds instrument bound %g", ErrInvalidParams, maxLevel)
	}
	if p.Limit <= 0 || p.Limit > maxLimit {
		return fmt.Errorf("%w: limit must be in (0, %g]", ErrInvalidParams, maxLimit)
	}

	if n := len(p.levels()); n > maxPoints {
		return fmt.Errorf("%w: %d points exceeds maximum %d", ErrInvalidParams, n, maxPoints)
	}
	return nil
}
