package spectro

import (
	"context"
	"time"
)

// Spectrum is one acquired spectrum: paired wavelength and intensity
// arrays of equal length.
type Spectrum struct {
	Wavelengths     []float64     `json:"wavelengths"`
	Intensities     []float64     `json:"intensities"`
	IntegrationTime time.Duration `json:"integration_time"`
	Taken           time.Time     `json:"taken"`
}

// PeakIndex returns the index of the highest intensity, or -1 for an
// empty spectrum.
func (s *Spectrum) PeakIndex() int {
	peak := -1
	for i, v := range s.Intensities {
		if peak < 0 || v > s.Intensities[peak] {
			peak = i
		}
	}
	return peak
}

// Adapter wraps exactly one spectrometer class and exposes primitive
// operations only.
//
// Implementations wrap transport faults with instrument.ErrDeviceComm.
type Adapter interface {
	// Open establishes the physical connection.
	Open(ctx context.Context) error

	// Close releases the physical connection.
	Close() error

	// Model returns the device model designation.
	Model() string

	// SetIntegrationTime programs the detector integration time.
	SetIntegrationTime(ctx context.Context, d time.Duration) error

	// Acquire reads one spectrum, blocking for the integration time.
	// Cancellation is honored at the next safe checkpoint.
	Acquire(ctx context.Context) (*Spectrum, error)
}
