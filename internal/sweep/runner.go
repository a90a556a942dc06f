package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elworkbench/workbench-core/internal/archive"
	"github.com/elworkbench/workbench-core/internal/broker"
	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
	"github.com/elworkbench/workbench-core/internal/infrastructure/logging"
	"github.com/elworkbench/workbench-core/internal/instrument/smu"
	"github.com/elworkbench/workbench-core/internal/profile"
	"github.com/elworkbench/workbench-core/internal/status"
	"github.com/elworkbench/workbench-core/internal/volatile"
)

// Source is the slice of the SMU capability the runner drives.
type Source interface {
	ApplyAndMeasure(ctx context.Context, ch smu.Channel, voltageSource bool, level, limit float64) (*smu.Measurement, error)
	OutputOff(ctx context.Context, ch smu.Channel) error
	MaxVoltage() float64
	MaxCurrent() float64
}

// ProfileReader is the slice of the profile capability the runner reads.
type ProfileReader interface {
	CurrentProfile() *profile.Profile
	CurrentDevice() (*profile.DeviceGeometry, bool)
}

// Sink receives completed sweep records for export. Sink failures are
// reported but never fail the sweep; the archive remains the record of
// truth.
type Sink interface {
	Name() string
	PublishSweep(ctx context.Context, rec *archive.SweepRecord) error
}

// Runner executes level sweeps against the SMU capability, streaming
// points into the volatile buffer and archiving the completed record.
// One sweep runs at a time.
type Runner struct {
	broker    *broker.Broker
	repo      archive.Repository
	cfg       config.SweepConfig
	statusMgr *status.Manager
	logger    *logging.Logger
	sinks     []Sink

	mu      sync.Mutex
	running bool
}

// NewRunner creates a sweep runner. Capabilities are resolved through
// the broker at run time so registration order does not matter.
func NewRunner(b *broker.Broker, repo archive.Repository, cfg config.SweepConfig, statusMgr *status.Manager, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		broker:    b,
		repo:      repo,
		cfg:       cfg,
		statusMgr: statusMgr,
		logger:    logger.With("component", "sweep"),
	}
}

// AddSink registers an export sink. Not safe to call once sweeps run.
func (r *Runner) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// IsRunning reports whether a sweep is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes one sweep. It validates parameters before touching
// hardware, measures every level in order and archives the result.
// Cancellation or an instrument fault stops the ramp; points measured
// before the stop are archived with the record marked aborted, and the
// triggering error is returned alongside the partial record.
func (r *Runner) Run(ctx context.Context, params Params) (*archive.SweepRecord, error) {
	src, err := broker.Resolve[Source](r.broker, broker.CapabilitySMU)
	if err != nil {
		return nil, err
	}
	prof, err := broker.Resolve[ProfileReader](r.broker, broker.CapabilityProfile)
	if err != nil {
		return nil, err
	}

	maxLevel, maxLimit := src.MaxVoltage(), src.MaxCurrent()
	if !params.VoltageSweep {
		maxLevel, maxLimit = maxLimit, maxLevel
	}
	if err := params.validate(r.cfg.MaxPoints, maxLevel, maxLimit); err != nil {
		return nil, err
	}

	current := prof.CurrentProfile()
	if current == nil {
		return nil, ErrNoProfile
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrSweepRunning
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	settle := params.SettleDelay
	if settle == 0 {
		settle = r.cfg.SettleDelay
	}

	rec := &archive.SweepRecord{
		ID:           uuid.NewString(),
		ProfileID:    current.ID,
		ProfileName:  current.Name,
		Channel:      string(params.Channel),
		VoltageSweep: params.VoltageSweep,
		Start:        params.Start,
		End:          params.End,
		Step:         params.Step,
		Limit:        params.Limit,
		SettleDelay:  settle,
		StartedAt:    time.Now().UTC(),
	}
	if dev, ok := prof.CurrentDevice(); ok {
		rec.DeviceID = dev.ID
	}

	levels := params.levels()
	r.statusMgr.Info("sweep %s started: %d points on channel %s", rec.ID, len(levels), params.Channel)

	runErr := r.ramp(ctx, src, params, levels, settle, rec)
	rec.CompletedAt = time.Now().UTC()
	rec.Aborted = runErr != nil

	if saveErr := r.repo.SaveSweep(ctx, rec); saveErr != nil {
		// Archiving a cancelled run against a dead context would always
		// fail; retry detached so the measured data survives.
		if ctx.Err() != nil {
			saveErr = r.repo.SaveSweep(context.Background(), rec)
		}
		if saveErr != nil {
			r.statusMgr.Error("archiving sweep %s failed: %v", rec.ID, saveErr)
			if runErr == nil {
				runErr = saveErr
			}
		}
	}

	r.export(rec)

	if runErr != nil {
		r.statusMgr.Warning("sweep %s stopped after %d of %d points: %v",
			rec.ID, len(rec.Points), len(levels), runErr)
		return rec, runErr
	}

	r.statusMgr.Info("sweep %s completed: %d points", rec.ID, len(rec.Points))
	return rec, nil
}

// ramp drives the level list, appending measured points to rec and
// mirroring them into the volatile buffer after every step.
func (r *Runner) ramp(ctx context.Context, src Source, params Params, levels []float64, settle time.Duration, rec *archive.SweepRecord) error {
	defer r.outputOff(src, params.Channel)

	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return err
		}

		m, err := src.ApplyAndMeasure(ctx, params.Channel, params.VoltageSweep, level, params.Limit)
		if err != nil {
			return fmt.Errorf("point %d at level %g: %w", i+1, level, err)
		}

		rec.Points = append(rec.Points, archive.Point{
			Level:   level,
			Voltage: m.Voltage,
			Current: m.Current,
		})
		r.publish(rec.Points)

		if params.OnProgress != nil {
			params.OnProgress(Progress{Point: i + 1, Total: len(levels), Level: level})
		}

		if settle > 0 && i < len(levels)-1 {
			timer := time.NewTimer(settle)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	return nil
}

// publish overwrites the sweep slots with the points measured so far,
// so live consumers always see a consistent prefix of the run.
func (r *Runner) publish(points []archive.Point) {
	n := len(points)
	levels := make([]float64, n)
	voltages := make([]float64, n)
	currents := make([]float64, n)
	for i, p := range points {
		levels[i] = p.Level
		voltages[i] = p.Voltage
		currents[i] = p.Current
	}

	buffer := r.broker.Volatile()
	for slot, data := range map[string][]float64{
		volatile.SlotSweepLevels:   levels,
		volatile.SlotSweepVoltages: voltages,
		volatile.SlotSweepCurrents: currents,
	} {
		if err := buffer.Set(slot, volatile.ProducerSweep, data); err != nil {
			r.logger.Warn("publishing sweep data failed", "slot", slot, "error", err)
		}
	}
}

// outputOff forces the driven channel off after a run. The measure
// path already disables output per point, so a failure here only
// matters after an abort mid-command.
func (r *Runner) outputOff(src Source, ch smu.Channel) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := src.OutputOff(ctx, ch); err != nil && !errors.Is(err, smu.ErrInvalidChannel) {
		r.statusMgr.Warning("disabling output on channel %s after sweep failed: %v", ch, err)
	}
}

// export hands the record to each sink, best effort.
func (r *Runner) export(rec *archive.SweepRecord) {
	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sink.PublishSweep(ctx, rec); err != nil {
			r.statusMgr.Warning("exporting sweep %s to %s failed: %v", rec.ID, sink.Name(), err)
		}
		cancel()
	}
}
