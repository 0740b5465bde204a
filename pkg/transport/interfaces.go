package transport

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
)

// Interface errors.
var (
	// ErrClosed indicates a submission against a closed interface.
	ErrClosed = errors.New("interface closed")

	// ErrOpenFailed indicates the transport rejected or could not reach
	// the target.
	ErrOpenFailed = errors.New("transport open failed")

	// ErrUnsupportedScheme indicates no backend is registered for the
	// URI scheme.
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")
)

// Completion reports the outcome of a submitted operation. Tag echoes the
// tag the operation was submitted with.
type Completion struct {
	// Tag identifies the submitted operation.
	Tag uuid.UUID

	// Err is the operation outcome; nil means success.
	Err error

	// Capacity is set for capacity queries.
	Capacity *block.Capacity
}

// BlockInterface is the asynchronous endpoint for raw data transfer.
//
// Each Submit call returns a channel on which exactly one Completion is
// delivered, unless the interface is closed first, in which case the
// channel is closed without a value. Close is idempotent.
type BlockInterface interface {
	// SubmitCapacity submits a capacity query.
	SubmitCapacity(tag uuid.UUID) (<-chan Completion, error)

	// SubmitTransfer submits a raw-block data transfer.
	SubmitTransfer(tag uuid.UUID, req block.TransferRequest) (<-chan Completion, error)

	// Close closes the endpoint, cancelling anything in flight.
	Close() error
}

// CommandInterface is the asynchronous endpoint for control operations,
// separate from bulk data transfer. Same completion and close semantics
// as BlockInterface.
type CommandInterface interface {
	// SubmitReset submits a protocol-level reset, aborting outstanding
	// operations on the backend.
	SubmitReset(tag uuid.UUID) (<-chan Completion, error)

	// Close closes the endpoint.
	Close() error
}

// Opener opens an interface pair against the target named by a URI.
// Implemented by each protocol backend.
type Opener interface {
	// Scheme returns the URI scheme this backend serves.
	Scheme() string

	// Open resolves the URI and opens both endpoints. On failure
	// neither endpoint is left open.
	Open(ctx context.Context, target *url.URL) (CommandInterface, BlockInterface, error)
}

// OpenFunc resolves a URI to an open interface pair. The san package
// consumes this shape so tests can substitute the default scheme registry.
type OpenFunc func(ctx context.Context, target *url.URL) (CommandInterface, BlockInterface, error)
