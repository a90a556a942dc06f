package profile

import "errors"

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile: not found")

// ErrDeviceNotFound is returned when a device is not on the profile.
var ErrDeviceNotFound = errors.New("profile: device not found")

// ErrMalformedRecord is returned when a record is missing required
// identity fields or carries an invalid ID.
var ErrMalformedRecord = errors.New("profile: malformed record")

// ErrDuplicateName is returned when a profile name is already taken.
var ErrDuplicateName = errors.New("profile: name already in use")

// ErrNoSelection is returned when an operation needs a selected profile
// and none is selected.
var ErrNoSelection = errors.New("profile: no profile selected")

// ErrInvalidName is returned for empty or over-long names.
var ErrInvalidName = errors.New("profile: invalid name")
