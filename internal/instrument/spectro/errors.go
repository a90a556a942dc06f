package spectro

import "errors"

// ErrIntegrationOutOfRange is returned when an integration time is
// outside the configured bounds. Rejected before any hardware command.
var ErrIntegrationOutOfRange = errors.New("spectro: integration time out of range")

// ErrAcquisitionRunning is returned when continuous acquisition is
// already active.
var ErrAcquisitionRunning = errors.New("spectro: continuous acquisition already running")
