package smu

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
	"github.com/elworkbench/workbench-core/internal/infrastructure/logging"
	"github.com/elworkbench/workbench-core/internal/instrument"
	"github.com/elworkbench/workbench-core/internal/status"
)

// Measurement is one source-measure result.
type Measurement struct {
	Current float64 `json:"current"`
	Voltage float64 `json:"voltage"`
}

// API is the source-measure capability registered with the broker.
//
// It validates every argument against the configured safe ranges
// before any hardware command, serializes commands on the device
// session, and converts adapter faults into status reports plus
// failure results. Consumer modules never see a raw driver error
// escape as a panic.
type API struct {
	adapter   Adapter
	session   *instrument.Session
	gate      *instrument.Gate
	statusMgr *status.Manager
	logger    *logging.Logger

	maxVoltage float64
	maxCurrent float64
}

// NewAPI creates the source-measure capability around an adapter.
func NewAPI(adapter Adapter, cfg config.SMUConfig, statusMgr *status.Manager, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Default()
	}
	return &API{
		adapter:    adapter,
		session:    instrument.NewSession(),
		gate:       instrument.NewGate(cfg.CommandTimeout),
		statusMgr:  statusMgr,
		logger:     logger.With("component", "smu"),
		maxVoltage: cfg.MaxVoltage,
		maxCurrent: cfg.MaxCurrent,
	}
}

// State returns the device session state.
func (a *API) State() instrument.ConnState {
	return a.session.State()
}

// Connect opens the device session. The session resolves to connected
// on success and back to disconnected on failure.
func (a *API) Connect(ctx context.Context) error {
	if err := a.session.BeginConnect(); err != nil {
		return err
	}

	if err := a.adapter.Open(ctx); err != nil {
		a.session.Disconnect()
		a.statusMgr.Error("SMU connection failed: %v", err)
		return err
	}

	ident, err := a.adapter.Identify(ctx)
	if err != nil {
		a.adapter.Close()
		a.session.Disconnect()
		a.statusMgr.Error("SMU identification failed: %v", err)
		return err
	}

	a.session.Connected()
	a.logger.Info("connected", "ident", ident)
	a.statusMgr.Info("SMU connected: %s", ident)
	return nil
}

// Disconnect drives all outputs off, closes the adapter and releases
// the session. Output-off failures are reported but do not keep the
// session open.
func (a *API) Disconnect(ctx context.Context) error {
	if a.session.State() == instrument.StateDisconnected {
		return nil
	}

	for _, ch := range AllChannels() {
		if err := a.adapter.SetOutput(ctx, ch, false); err != nil {
			a.statusMgr.Warning("SMU output off on channel %s failed: %v", ch, err)
		}
	}

	err := a.adapter.Close()
	a.session.Disconnect()
	if err != nil {
		a.statusMgr.Warning("SMU close failed: %v", err)
		return err
	}

	a.statusMgr.Info("SMU disconnected")
	return nil
}

// ApplyAndMeasure sources one level on a channel and measures the
// resulting current and voltage, driving the output off afterwards.
//
// Arguments are validated against the configured safe ranges before
// any hardware command; an out-of-range level or limit has no side
// effect on the device. Hardware faults are reported through the
// status channel and returned as errors, never panics.
//
// Cancellation is honored between commands. An abort that manages to
// drive the output off leaves the session connected; one that cannot
// faults the session.
func (a *API) ApplyAndMeasure(ctx context.Context, ch Channel, voltageSource bool, level, limit float64) (*Measurement, error) {
	if err := a.validateArgs(ch, voltageSource, level, limit); err != nil {
		return nil, err
	}

	if err := a.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer a.gate.Release()

	if err := a.session.CheckReady(); err != nil {
		return nil, err
	}

	if err := a.program(ctx, ch, voltageSource, level, limit); err != nil {
		return nil, a.commandFault("programming source", err)
	}

	if err := a.adapter.SetOutput(ctx, ch, true); err != nil {
		return nil, a.commandFault("enabling output", err)
	}

	// Cancellation checkpoint with the output live: abort cleanly by
	// driving the output off, or fault the session if that fails too.
	if err := ctx.Err(); err != nil {
		a.abortOutput(ch)
		return nil, err
	}

	current, voltage, err := a.adapter.MeasureIV(ctx, ch)
	if err != nil {
		a.abortOutput(ch)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, a.commandFault("measuring", err)
	}

	if err := a.adapter.SetOutput(ctx, ch, false); err != nil {
		return nil, a.commandFault("disabling output", err)
	}

	a.session.CommandOK()
	return &Measurement{Current: current, Voltage: voltage}, nil
}

// OutputOff drives one channel's output off outside a measurement.
func (a *API) OutputOff(ctx context.Context, ch Channel) error {
	if _, err := tspNode(ch); err != nil {
		return err
	}

	if err := a.gate.Acquire(ctx); err != nil {
		return err
	}
	defer a.gate.Release()

	if err := a.session.CheckReady(); err != nil {
		return err
	}
	if err := a.adapter.SetOutput(ctx, ch, false); err != nil {
		return a.commandFault("disabling output", err)
	}
	a.session.CommandOK()
	return nil
}

// MaxVoltage returns the configured safe voltage bound.
func (a *API) MaxVoltage() float64 { return a.maxVoltage }

// MaxCurrent returns the configured safe current bound.
func (a *API) MaxCurrent() float64 { return a.maxCurrent }

// validateArgs checks a command against the instrument-safe ranges.
func (a *API) validateArgs(ch Channel, voltageSource bool, level, limit float64) error {
	if _, err := tspNode(ch); err != nil {
		return err
	}

	levelBound, limitBound := a.maxCurrent, a.maxVoltage
	if voltageSource {
		levelBound, limitBound = a.maxVoltage, a.maxCurrent
	}

	if math.IsNaN(level) || math.Abs(level) > levelBound {
		return fmt.Errorf("%w: %g exceeds ±%g", ErrLevelOutOfRange, level, levelBound)
	}
	if math.IsNaN(limit) || limit <= 0 || limit > limitBound {
		return fmt.Errorf("%w: %g outside (0, %g]", ErrLimitOutOfRange, limit, limitBound)
	}
	return nil
}

// program sets function, level and limit for one command.
func (a *API) program(ctx context.Context, ch Channel, voltageSource bool, level, limit float64) error {
	if err := a.adapter.SetSourceFunction(ctx, ch, voltageSource); err != nil {
		return err
	}
	if err := a.adapter.SetSourceLevel(ctx, ch, voltageSource, level); err != nil {
		return err
	}
	return a.adapter.SetLimit(ctx, ch, voltageSource, limit)
}

// abortOutput tries to drive the output off after an abort. Success
// leaves the session connected; failure faults it.
func (a *API) abortOutput(ch Channel) {
	// Fresh context: the caller's may already be cancelled.
	if err := a.adapter.SetOutput(context.Background(), ch, false); err != nil {
		a.session.Fault()
		a.statusMgr.Error("SMU abort could not disable output on channel %s: %v", ch, err)
		return
	}
	a.session.CommandOK()
}

// commandFault records a failed command, reports it and returns the
// wrapped error.
func (a *API) commandFault(op string, err error) error {
	state := a.session.CommandFailed()
	a.statusMgr.Error("SMU %s failed: %v", op, err)
	if state == instrument.StateFaulted {
		a.statusMgr.Error("SMU session faulted after repeated failures; reconnect required")
	}
	return err
}
