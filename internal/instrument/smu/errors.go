package smu

import "errors"

// ErrInvalidChannel is returned for a channel outside a/b.
var ErrInvalidChannel = errors.New("smu: invalid channel")

// ErrLevelOutOfRange is returned when a source level exceeds the
// configured safe range. Rejected before any hardware command.
var ErrLevelOutOfRange = errors.New("smu: source level out of range")

// ErrLimitOutOfRange is returned when a compliance limit is zero,
// negative or exceeds the configured safe range.
var ErrLimitOutOfRange = errors.New("smu: compliance limit out of range")
