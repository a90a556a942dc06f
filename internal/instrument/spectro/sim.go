package spectro

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/elworkbench/workbench-core/internal/instrument"
)

// Detector geometry of the simulated NIR spectrometer.
const (
	simPoints        = 512
	simFirstWavelen  = 903.07996
	simLastWavelen   = 2527.059023186984
	simBaselineFloor = 1000.0
	simBaselineSpan  = 500.0
)

// simPeak is one absorption/emission feature of the simulated sample.
type simPeak struct {
	center float64 // nm
	height float64 // counts
	width  float64 // nm, gaussian sigma
}

// simPeaks are the spectral features every simulated acquisition shows.
var simPeaks = []simPeak{
	{center: 1450, height: 8000, width: 40},
	{center: 1720, height: 15000, width: 30},
	{center: 2050, height: 5000, width: 55},
	{center: 2350, height: 3000, width: 60},
}

// SimAdapter is a software NIR spectrometer modelled on a 512-pixel
// InGaAs detector. Acquisitions take the programmed integration time
// and produce a fixed set of Gaussian features over a noisy baseline;
// noise shrinks as integration time grows.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type SimAdapter struct {
	mu          sync.Mutex
	open        bool
	integration time.Duration
	rng         *rand.Rand

	wavelengths []float64

	// failNext, when set, fails the next operation.
	failNext error
}

// NewSimAdapter creates the simulated spectrometer.
func NewSimAdapter() *SimAdapter {
	wl := make([]float64, simPoints)
	step := (simLastWavelen - simFirstWavelen) / float64(simPoints-1)
	for i := range wl {
		wl[i] = simFirstWavelen + float64(i)*step
	}
	return &SimAdapter{
		integration: 100 * time.Millisecond,
		rng:         rand.New(rand.NewSource(2)),
		wavelengths: wl,
	}
}

// FailNext injects an error into the next operation.
func (a *SimAdapter) FailNext(err error) {
	a.mu.Lock()
	a.failNext = err
	a.mu.Unlock()
}

// Open establishes the simulated connection.
func (a *SimAdapter) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return err
	}
	a.open = true
	return nil
}

// Close releases the simulated connection.
func (a *SimAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.open = false
	return nil
}

// Model returns the simulated device designation.
func (a *SimAdapter) Model() string {
	return "NIRQUEST512 (simulated)"
}

// SetIntegrationTime programs the detector integration time.
func (a *SimAdapter) SetIntegrationTime(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return err
	}
	if !a.open {
		return fmt.Errorf("%w: device not open", instrument.ErrDeviceComm)
	}
	a.integration = d
	return nil
}

// Acquire produces one spectrum after waiting the integration time.
func (a *SimAdapter) Acquire(ctx context.Context) (*Spectrum, error) {
	a.mu.Lock()
	if err := a.takeFailure(); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	if !a.open {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: device not open", instrument.ErrDeviceComm)
	}
	integration := a.integration
	a.mu.Unlock()

	timer := time.NewTimer(integration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Longer integration averages detector noise away.
	noiseFactor := math.Pow(20/float64(integration.Milliseconds()), 0.7)
	if noiseFactor < 0.05 {
		noiseFactor = 0.05
	}

	intensities := make([]float64, simPoints)
	for i, wl := range a.wavelengths {
		v := simBaselineFloor + a.rng.Float64()*simBaselineSpan*noiseFactor
		for _, p := range simPeaks {
			d := wl - p.center
			v += p.height * math.Exp(-d*d/(2*p.width*p.width))
		}
		intensities[i] = v
	}

	wavelengths := make([]float64, simPoints)
	copy(wavelengths, a.wavelengths)

	return &Spectrum{
		Wavelengths:     wavelengths,
		Intensities:     intensities,
		IntegrationTime: integration,
		Taken:           time.Now(),
	}, nil
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
