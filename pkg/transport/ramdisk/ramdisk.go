package ramdisk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "ram"

// Opener opens ramdisk interface pairs against a Store.
type Opener struct {
	store *Store
}

// NewOpener creates an opener backed by the given store.
func NewOpener(store *Store) *Opener {
	return &Opener{store: store}
}

// Scheme returns the "ram" scheme.
func (o *Opener) Scheme() string { return Scheme }

// Open resolves the disk named by the URI, creating it on first open,
// and returns a fresh interface pair attached to it.
func (o *Opener) Open(ctx context.Context, target *url.URL) (transport.CommandInterface, transport.BlockInterface, error) {
	name := diskName(target)
	if name == "" {
		return nil, nil, ErrNoDiskName
	}

	capacity, err := capacityFromQuery(target.Query())
	if err != nil {
		return nil, nil, err
	}

	disk := o.store.getOrCreate(name, capacity)
	if err := disk.open(); err != nil {
		return nil, nil, err
	}

	return &commandEndpoint{endpoint: newEndpoint(disk)}, &blockEndpoint{endpoint: newEndpoint(disk)}, nil
}

// diskName extracts the disk name from a ram URI, accepting both
// ram://name and ram:name forms.
func diskName(target *url.URL) string {
	if target.Host != "" {
		return target.Host
	}
	if target.Opaque != "" {
		return target.Opaque
	}
	return strings.TrimPrefix(target.Path, "/")
}

// capacityFromQuery parses geometry parameters, applying defaults.
func capacityFromQuery(query url.Values) (block.Capacity, error) {
	capacity := block.Capacity{
		Blocks:    DefaultBlocks,
		BlockSize: DefaultBlockSize,
	}

	if raw := query.Get("blocks"); raw != "" {
		blocks, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || blocks == 0 {
			return block.Capacity{}, fmt.Errorf("invalid blocks parameter %q", raw)
		}
		capacity.Blocks = blocks
	}
	if raw := query.Get("blksize"); raw != "" {
		blksize, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || blksize == 0 {
			return block.Capacity{}, fmt.Errorf("invalid blksize parameter %q", raw)
		}
		capacity.BlockSize = uint32(blksize)
	}
	if raw := query.Get("optical"); raw != "" {
		optical, err := strconv.ParseBool(raw)
		if err != nil {
			return block.Capacity{}, fmt.Errorf("invalid optical parameter %q", raw)
		}
		capacity.Optical = optical
	}

	return capacity, nil
}

// endpoint holds the completion plumbing shared by both interface kinds.
// Completions are delivered from a goroutine, one per submission; closing
// the endpoint closes every still-pending completion channel without a
// value, which is the cancellation signal to the caller.
type endpoint struct {
	disk *Disk

	mu      sync.Mutex
	closed  bool
	pending map[chan transport.Completion]struct{}
}

func newEndpoint(disk *Disk) *endpoint {
	return &endpoint{
		disk:    disk,
		pending: make(map[chan transport.Completion]struct{}),
	}
}

// submit registers a pending completion and runs the operation
// asynchronously. A wedged disk accepts the submission but never
// completes it unless bypassWedge is set (reset is the control-plane
// escape hatch from a hung target).
func (e *endpoint) submit(bypassWedge bool, run func() transport.Completion) (<-chan transport.Completion, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, transport.ErrClosed
	}
	ch := make(chan transport.Completion, 1)
	e.pending[ch] = struct{}{}
	e.mu.Unlock()

	go func() {
		if !bypassWedge && e.disk.isWedged() {
			// Left pending until the endpoint is closed.
			return
		}
		completion := run()

		e.mu.Lock()
		if _, ok := e.pending[ch]; !ok {
			// Closed while the operation ran.
			e.mu.Unlock()
			return
		}
		delete(e.pending, ch)
		e.mu.Unlock()

		ch <- completion
	}()

	return ch, nil
}

// Close closes the endpoint and cancels pending completions. Idempotent.
func (e *endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	for ch := range e.pending {
		close(ch)
		delete(e.pending, ch)
	}
	return nil
}

// blockEndpoint implements transport.BlockInterface.
type blockEndpoint struct {
	*endpoint
}

func (e *blockEndpoint) SubmitCapacity(tag uuid.UUID) (<-chan transport.Completion, error) {
	return e.submit(false, func() transport.Completion {
		capacity := e.disk.Capacity()
		return transport.Completion{Tag: tag, Capacity: &capacity}
	})
}

func (e *blockEndpoint) SubmitTransfer(tag uuid.UUID, req block.TransferRequest) (<-chan transport.Completion, error) {
	return e.submit(false, func() transport.Completion {
		return transport.Completion{Tag: tag, Err: e.disk.transfer(req)}
	})
}

// commandEndpoint implements transport.CommandInterface.
type commandEndpoint struct {
	*endpoint
}

func (e *commandEndpoint) SubmitReset(tag uuid.UUID) (<-chan transport.Completion, error) {
	return e.submit(true, func() transport.Completion {
		// A reset aborts outstanding operations on the target, which
		// for a ramdisk means clearing a wedge.
		e.disk.SetWedged(false)
		return transport.Completion{Tag: tag}
	})
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Opener           = (*Opener)(nil)
	_ transport.BlockInterface   = (*blockEndpoint)(nil)
	_ transport.CommandInterface = (*commandEndpoint)(nil)
)

func init() {
	transport.Register(NewOpener(DefaultStore))
}
