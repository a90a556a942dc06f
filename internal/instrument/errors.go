package instrument

import "errors"

// ErrDeviceNotReady is returned when a command is issued against a
// session that is not connected.
var ErrDeviceNotReady = errors.New("instrument: device not ready")

// ErrDeviceComm is returned for I/O faults during a command. Adapters
// wrap their transport errors with it so capabilities can convert the
// fault into a status report instead of propagating it.
var ErrDeviceComm = errors.New("instrument: device communication failure")

// ErrBusy is returned when a command cannot claim the device session
// within the contention timeout.
var ErrBusy = errors.New("instrument: device busy")
