package archive

import "errors"

// Domain errors for the archive package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, archive.ErrSweepNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSweepNotFound is returned when a sweep ID does not exist.
	ErrSweepNotFound = errors.New("archive: sweep not found")

	// ErrSweepExists is returned when saving a sweep whose ID is already stored.
	ErrSweepExists = errors.New("archive: sweep already exists")

	// ErrInvalidSweep is returned when a record fails validation before storage.
	ErrInvalidSweep = errors.New("archive: invalid sweep record")
)
