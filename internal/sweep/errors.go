package sweep

import "errors"

// Domain errors for the sweep package.
var (
	// ErrInvalidParams is returned when sweep parameters fail validation.
	ErrInvalidParams = errors.New("sweep: invalid parameters")

	// ErrSweepRunning is returned when a sweep is started while another
	// is still in progress.
	ErrSweepRunning = errors.New("sweep: already running")

	// ErrNoProfile is returned when no sample profile is selected.
	ErrNoProfile = errors.New("sweep: no profile selected")
)
