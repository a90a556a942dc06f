package spectro

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elworkbench/workbench-core/internal/infrastructure/config"
	"github.com/elworkbench/workbench-core/internal/infrastructure/logging"
	"github.com/elworkbench/workbench-core/internal/instrument"
	"github.com/elworkbench/workbench-core/internal/status"
	"github.com/elworkbench/workbench-core/internal/volatile"
)

// API is the spectral-acquisition capability registered with the
// broker. Single acquisitions and integration-time changes are
// serialized on the device session; continuous acquisition runs in a
// background worker and publishes every spectrum into the volatile
// buffer as producer "spectro", where consumer modules pull it on
// demand.
type API struct {
	adapter   Adapter
	session   *instrument.Session
	gate      *instrument.Gate
	buffer    *volatile.Buffer
	statusMgr *status.Manager
	logger    *logging.Logger

	minIntegration time.Duration
	maxIntegration time.Duration

	integrationMu sync.RWMutex
	integration   time.Duration

	runMu     sync.Mutex
	runCancel context.CancelFunc
	runDone   chan struct{}
}

// NewAPI creates the spectral-acquisition capability around an adapter.
func NewAPI(adapter Adapter, cfg config.SpectrometerConfig, buffer *volatile.Buffer, statusMgr *status.Manager, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Default()
	}
	return &API{
		adapter:        adapter,
		session:        instrument.NewSession(),
		gate:           instrument.NewGate(cfg.CommandTimeout),
		buffer:         buffer,
		statusMgr:      statusMgr,
		logger:         logger.With("component", "spectro"),
		minIntegration: cfg.MinIntegration,
		maxIntegration: cfg.MaxIntegration,
		integration:    cfg.IntegrationTime,
	}
}

// State returns the device session state.
func (a *API) State() instrument.ConnState {
	return a.session.State()
}

// Connect opens the device session and programs the initial
// integration time.
func (a *API) Connect(ctx context.Context) error {
	if err := a.session.BeginConnect(); err != nil {
		return err
	}

	if err := a.adapter.Open(ctx); err != nil {
		a.session.Disconnect()
		a.statusMgr.Error("spectrometer connection failed: %v", err)
		return err
	}

	if err := a.adapter.SetIntegrationTime(ctx, a.IntegrationTime()); err != nil {
		a.adapter.Close()
		a.session.Disconnect()
		a.statusMgr.Error("spectrometer setup failed: %v", err)
		return err
	}

	a.session.Connected()
	a.statusMgr.Info("spectrometer connected: %s", a.adapter.Model())
	return nil
}

// Disconnect stops any continuous acquisition, closes the adapter and
// releases the session.
func (a *API) Disconnect() error {
	if a.session.State() == instrument.StateDisconnected {
		return nil
	}

	a.StopContinuous()

	err := a.adapter.Close()
	a.session.Disconnect()
	if err != nil {
		a.statusMgr.Warning("spectrometer close failed: %v", err)
		return err
	}

	a.statusMgr.Info("spectrometer disconnected")
	return nil
}

// IntegrationTime returns the currently programmed integration time.
func (a *API) IntegrationTime() time.Duration {
	a.integrationMu.RLock()
	defer a.integrationMu.RUnlock()
	return a.integration
}

// SetIntegrationTime programs the detector integration time. Values
// outside the configured bounds are rejected before any hardware
// command.
func (a *API) SetIntegrationTime(ctx context.Context, d time.Duration) error {
	if d < a.minIntegration || d > a.maxIntegration {
		return fmt.Errorf("%w: %v outside [%v, %v]",
			ErrIntegrationOutOfRange, d, a.minIntegration, a.maxIntegration)
	}

	if err := a.gate.Acquire(ctx); err != nil {
		return err
	}
	defer a.gate.Release()

	if err := a.session.CheckReady(); err != nil {
		return err
	}
	if err := a.adapter.SetIntegrationTime(ctx, d); err != nil {
		return a.commandFault("setting integration time", err)
	}

	a.integrationMu.Lock()
	a.integration = d
	a.integrationMu.Unlock()

	a.session.CommandOK()
	return nil
}

// Acquire reads one spectrum and publishes it into the volatile
// buffer. Concurrent callers queue briefly and are then rejected as
// busy.
func (a *API) Acquire(ctx context.Context) (*Spectrum, error) {
	if err := a.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer a.gate.Release()

	if err := a.session.CheckReady(); err != nil {
		return nil, err
	}

	spec, err := a.adapter.Acquire(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Aborted between checkpoints; the detector holds no state.
			a.session.CommandOK()
			return nil, err
		}
		return nil, a.commandFault("acquiring spectrum", err)
	}

	a.session.CommandOK()
	a.publish(spec)
	return spec, nil
}

// StartContinuous begins background acquisition. Each spectrum lands
// in the volatile buffer; consumers pull the latest on demand.
func (a *API) StartContinuous() error {
	if err := a.session.CheckReady(); err != nil {
		return err
	}

	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.runCancel != nil {
		return ErrAcquisitionRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.runCancel = cancel
	a.runDone = done

	go a.runLoop(ctx, done)

	a.statusMgr.Info("continuous acquisition started")
	return nil
}

// StopContinuous cancels background acquisition and waits for the
// worker to exit. Safe to call when nothing is running.
func (a *API) StopContinuous() {
	a.runMu.Lock()
	cancel := a.runCancel
	done := a.runDone
	a.runCancel = nil
	a.runDone = nil
	a.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	a.statusMgr.Info("continuous acquisition stopped")
}

// IsAcquiring reports whether the background worker is running.
func (a *API) IsAcquiring() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.runCancel != nil
}

// runLoop is the continuous-acquisition worker.
func (a *API) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, err := a.Acquire(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, instrument.ErrDeviceNotReady) {
			// The session faulted under us; stop rather than spin.
			a.statusMgr.Error("continuous acquisition stopped: %v", err)
			return
		}
		// Transient fault: the session tracks consecutive failures and
		// will trip to faulted if they persist.
		select {
		case <-ctx.Done():
			return
		case <-time.After(a.IntegrationTime()):
		}
	}
}

// publish writes a spectrum into the volatile slots.
func (a *API) publish(spec *Spectrum) {
	if a.buffer == nil {
		return
	}
	if err := a.buffer.Set(volatile.SlotSpectrumWavelengths, volatile.ProducerSpectro, spec.Wavelengths); err != nil {
		a.logger.Warn("publishing wavelengths failed", "error", err)
	}
	if err := a.buffer.Set(volatile.SlotSpectrumIntensities, volatile.ProducerSpectro, spec.Intensities); err != nil {
		a.logger.Warn("publishing intensities failed", "error", err)
	}
}

// commandFault records a failed command, reports it and returns the
// wrapped error.
func (a *API) commandFault(op string, err error) error {
	state := a.session.CommandFailed()
	a.statusMgr.Error("spectrometer %s failed: %v", op, err)
	if state == instrument.StateFaulted {
		a.statusMgr.Error("spectrometer session faulted after repeated failures; reconnect required")
	}
	return err
}
