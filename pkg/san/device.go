package san

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
	"github.com/sanboot-protocol/sanboot-go/pkg/log"
	"github.com/sanboot-protocol/sanboot-go/pkg/retry"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport"
)

// Drive number conventions.
const (
	// DriveUnspecified requests assignment via the default-drive policy.
	DriveUnspecified uint32 = 0

	// DriveHardDisk is the first conventional hard-disk drive number.
	DriveHardDisk uint32 = 0x80

	// DriveOptical is the first conventional CD-ROM drive number.
	DriveOptical uint32 = 0xE0
)

// errNeverOpened is the initial block interface status of an allocated
// device; it makes the first I/O trigger an open.
var errNeverOpened = errors.New("block interface not yet opened")

// Device is a SAN device: a remote storage target exposed under a
// conventional drive number.
type Device struct {
	// opMu serializes commands on this device: at most one transfer,
	// reopen, or reset may be outstanding at a time.
	opMu sync.Mutex

	// mu guards the mutable state below.
	mu sync.Mutex

	// uri names the target storage resource. Immutable after Allocate.
	uri *url.URL

	// id uniquely identifies this device instance.
	id uuid.UUID

	// drive is the externally visible drive number. Assigned at
	// registration, immutable thereafter.
	drive uint32

	// Interfaces to the transport backend.
	command   transport.CommandInterface
	blockIntf transport.BlockInterface

	// timer governs the timeout window of the outstanding command.
	timer *retry.Timer

	// Last-observed interface status; nil means success. A non-nil
	// blockErr means the device needs a reopen before I/O.
	blockErr   error
	commandErr error

	// capacity is the raw geometry reported by the transport,
	// populated by Reopen.
	capacity block.Capacity

	// shift is the block size shift: logical blocks are
	// (1 << shift) raw blocks.
	shift uint32

	// optical indicates the target is optical media.
	optical bool

	// refs is the reference count. The device is released when it
	// reaches zero.
	refs     int
	released bool

	// registered is set while the device is in a registry.
	registered bool

	// open resolves the device URI to a fresh interface pair.
	open transport.OpenFunc

	logger log.Logger

	// Private is the driver-specific extension area, sized at
	// allocation time and owned by the transport-specific hook code.
	Private []byte
}

// DeviceConfig customizes device construction.
type DeviceConfig struct {
	// Open resolves the device URI to an interface pair. Defaults to
	// the default transport scheme registry.
	Open transport.OpenFunc

	// Logger receives device events. Defaults to NoopLogger.
	Logger log.Logger

	// Timer is the command timeout governor. Defaults to a timer with
	// the standard window policy.
	Timer *retry.Timer
}

// Allocate creates a device for a target URI with a private-data area of
// privSize bytes. The device holds one reference, is not registered, and
// has no interfaces open.
func Allocate(uri *url.URL, privSize int) (*Device, error) {
	return AllocateWithConfig(uri, privSize, DeviceConfig{})
}

// AllocateWithConfig creates a device with custom plumbing.
func AllocateWithConfig(uri *url.URL, privSize int, cfg DeviceConfig) (*Device, error) {
	if uri == nil {
		return nil, fmt.Errorf("%w: nil URI", ErrAllocation)
	}
	if privSize < 0 {
		return nil, fmt.Errorf("%w: negative private size %d", ErrAllocation, privSize)
	}

	if cfg.Open == nil {
		cfg.Open = transport.Open
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.Timer == nil {
		cfg.Timer = retry.NewTimer()
	}

	d := &Device{
		uri:      uri,
		id:       uuid.New(),
		timer:    cfg.Timer,
		blockErr: errNeverOpened,
		refs:     1,
		open:     cfg.Open,
		logger:   cfg.Logger,
		Private:  make([]byte, privSize),
	}

	d.logLifecycle(log.ActionAllocated)
	return d, nil
}

// Get takes a reference to the device.
func (d *Device) Get() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		panic("san: Get on released device")
	}
	d.refs++
	return d
}

// Put drops a reference. When the last reference is dropped the device
// is released: its interfaces are closed and its timer cancelled.
func (d *Device) Put() {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		panic("san: Put on released device")
	}
	d.refs--
	if d.refs > 0 {
		d.mu.Unlock()
		return
	}
	d.released = true
	d.mu.Unlock()

	d.closeInterfaces()
	d.timer.Stop()
	d.logLifecycle(log.ActionReleased)
}

// Refs returns the current reference count.
func (d *Device) Refs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs
}

// URI returns the target URI.
func (d *Device) URI() *url.URL { return d.uri }

// ID returns the device instance identifier.
func (d *Device) ID() uuid.UUID { return d.id }

// Drive returns the assigned drive number (DriveUnspecified before
// registration).
func (d *Device) Drive() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drive
}

// SetDrive requests a drive number. Must be called before registration;
// a registered device's drive number is immutable.
func (d *Device) SetDrive(drive uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registered {
		panic("san: SetDrive on registered device")
	}
	d.drive = drive
}

// Capacity returns the raw capacity as last reported by the transport.
func (d *Device) Capacity() block.Capacity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capacity
}

// Optical returns true if the device is optical media.
func (d *Device) Optical() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.optical
}

// BlockShift returns the current block size shift.
func (d *Device) BlockShift() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shift
}

// BlockSize returns the logical block size: the raw block size shifted
// left by the block size shift.
func (d *Device) BlockSize() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(d.capacity.BlockSize) << d.shift
}

// Blocks returns the logical block count: the raw block count shifted
// right by the block size shift.
func (d *Device) Blocks() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capacity.Blocks >> d.shift
}

// NeedsReopen returns true if the block interface is in a failed state
// and must be reopened before I/O.
func (d *Device) NeedsReopen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blockErr != nil
}

// BlockStatus returns the last-observed block interface status (nil
// means success).
func (d *Device) BlockStatus() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blockErr
}

// CommandStatus returns the last-observed command interface status.
func (d *Device) CommandStatus() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commandErr
}

// blockShiftFor computes the block size shift for a reported capacity:
// for optical media, the smallest shift making the logical block size at
// least the conventional optical sector size; zero otherwise.
func blockShiftFor(c block.Capacity) uint32 {
	if !c.Optical || c.BlockSize == 0 {
		return 0
	}
	var shift uint32
	for size := uint64(c.BlockSize); size < block.OpticalSectorSize; size <<= 1 {
		shift++
	}
	return shift
}

// closeInterfaces closes both interfaces. Idempotent; safe on a device
// that never opened.
func (d *Device) closeInterfaces() {
	d.mu.Lock()
	command, blockIntf := d.command, d.blockIntf
	d.command = nil
	d.blockIntf = nil
	if d.blockErr == nil {
		d.blockErr = transport.ErrClosed
	}
	d.mu.Unlock()

	if blockIntf != nil {
		_ = blockIntf.Close()
	}
	if command != nil {
		_ = command.Close()
	}
}

// await submits a command through submit and waits for its completion
// under the device timer. Exactly one of {completion, timer expiry,
// context cancellation} resolves the wait; a closed interface resolves
// it with transport.ErrClosed. Callers must hold opMu.
func (d *Device) await(ctx context.Context, kind log.CommandKind, submit func(tag uuid.UUID) (<-chan transport.Completion, error)) (transport.Completion, error) {
	tag := uuid.New()

	expired, err := d.timer.Start()
	if err != nil {
		return transport.Completion{}, err
	}
	window := d.timer.Window()
	start := time.Now()

	ch, err := submit(tag)
	if err != nil {
		d.timer.Stop()
		return transport.Completion{}, err
	}

	select {
	case completion, ok := <-ch:
		d.timer.Stop()
		elapsed := time.Since(start)
		if !ok {
			// Interface closed underneath the command; this is the
			// cancellation path, reported as a closed interface.
			return transport.Completion{}, transport.ErrClosed
		}
		d.timer.Reset()
		d.logCommand(kind, tag, window, false, elapsed)
		if completion.Tag != tag {
			// The backend answered a different command than we asked:
			// the protocol stream is desynchronized.
			return transport.Completion{}, fmt.Errorf("%w: completion tag mismatch", ErrResetRequired)
		}
		return completion, nil

	case <-expired:
		elapsed := time.Since(start)
		d.logCommand(kind, tag, window, true, elapsed)
		return transport.Completion{}, fmt.Errorf("%w: %s command after %v", retry.ErrTimeout, kind, window)

	case <-ctx.Done():
		d.timer.Stop()
		return transport.Completion{}, ctx.Err()
	}
}

// logLifecycle emits a lifecycle event.
func (d *Device) logLifecycle(action log.LifecycleAction) {
	d.mu.Lock()
	event := log.Event{
		Timestamp: time.Now(),
		Drive:     d.drive,
		DeviceID:  d.id.String(),
		URI:       d.uri.Redacted(),
		Layer:     log.LayerCore,
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Action: action, Refs: d.refs},
	}
	logger := d.logger
	d.mu.Unlock()
	logger.Log(event)
}

// logCommand emits a command event.
func (d *Device) logCommand(kind log.CommandKind, tag uuid.UUID, window time.Duration, expired bool, elapsed time.Duration) {
	d.mu.Lock()
	event := log.Event{
		Timestamp: time.Now(),
		Drive:     d.drive,
		DeviceID:  d.id.String(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			Kind:     kind,
			Tag:      tag.String(),
			Window:   window,
			Expired:  expired,
			Duration: &elapsed,
		},
	}
	logger := d.logger
	d.mu.Unlock()
	logger.Log(event)
}

// logError emits an error event.
func (d *Device) logError(layer log.Layer, context string, err error) {
	d.mu.Lock()
	event := log.Event{
		Timestamp: time.Now(),
		Drive:     d.drive,
		DeviceID:  d.id.String(),
		Layer:     layer,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	}
	logger := d.logger
	d.mu.Unlock()
	logger.Log(event)
}
