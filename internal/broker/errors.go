package broker

import "errors"

// ErrDuplicateCapability is returned when registering a name twice.
var ErrDuplicateCapability = errors.New("broker: capability already registered")

// ErrCapabilityNotFound is returned when resolving an unbound name.
var ErrCapabilityNotFound = errors.New("broker: capability not found")

// ErrInvalidCapability is returned for empty names or nil instances.
var ErrInvalidCapability = errors.New("broker: invalid capability registration")
