package wittypi

import "errors"

var (
	// ErrDeviceUnreachable means the transport failed while talking to the
	// device, including during the identity probe.
	ErrDeviceUnreachable = errors.New("device unreachable")

	// ErrDeviceMismatch means the identity register answered but did not
	// contain the WittyPi 4 firmware id.
	ErrDeviceMismatch = errors.New("device mismatch")

	// ErrInvalidValue means a caller supplied an out-of-range value to a
	// register write.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidTimeEncoding means a BCD decode saw a nibble greater than 9.
	ErrInvalidTimeEncoding = errors.New("invalid time encoding")

	// ErrUnknownReason means the action-reason register held a code outside
	// the documented set.
	ErrUnknownReason = errors.New("unknown action reason")

	// ErrClockUntrusted means the RTC failed the drift check against the
	// reference clock and must not be used for scheduling.
	ErrClockUntrusted = errors.New("hardware clock untrusted")
)
