package san

import (
	"errors"

	"github.com/sanboot-protocol/sanboot-go/pkg/retry"
)

// Core errors.
var (
	// ErrAllocation indicates a device could not be allocated.
	ErrAllocation = errors.New("device allocation failed")

	// ErrDuplicateDrive indicates the requested drive number is already
	// in use.
	ErrDuplicateDrive = errors.New("drive number already in use")

	// ErrNotFound indicates no device is registered under the drive
	// number.
	ErrNotFound = errors.New("no such drive")

	// ErrResetRequired indicates a protocol desynchronization; the
	// caller should reset the device before retrying I/O.
	ErrResetRequired = errors.New("protocol desynchronized, reset required")

	// ErrNotBootable indicates the device does not carry a recognized
	// boot record.
	ErrNotBootable = errors.New("device is not bootable")

	// ErrNoBootHandler indicates Boot was called without a handler to
	// hand the validated device to.
	ErrNoBootHandler = errors.New("no boot handler configured")
)

// ErrTimeout is the timeout error surfaced when a command exceeds its
// window. It is the retry package's sentinel, re-exported for callers
// that only import this package.
var ErrTimeout = retry.ErrTimeout
