package san

import (
	"context"
	"fmt"
	"time"

	"github.com/sanboot-protocol/sanboot-go/pkg/log"
)

// Reopen re-establishes the transport connection: it closes the existing
// interfaces, re-resolves the device URI through the transport selector,
// and probes capacity through the fresh block interface under the
// command timer.
//
// On success the raw geometry and block size shift are refreshed and the
// device is ready for I/O again. On failure the device stays in the
// needs-reopen state and remains registered; each Reopen call is a
// single attempt and the caller may try again later.
func (d *Device) Reopen(ctx context.Context) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.reopenLocked(ctx)
}

// reopenLocked is Reopen without the command serialization; the caller
// must hold opMu.
func (d *Device) reopenLocked(ctx context.Context) error {
	start := time.Now()

	// Close whatever is open; idempotent.
	d.closeInterfaces()

	command, blockIntf, err := d.open(ctx, d.uri)
	if err != nil {
		d.logReopen(nil, time.Since(start), err)
		return err
	}

	d.mu.Lock()
	d.command = command
	d.blockIntf = blockIntf
	d.mu.Unlock()

	completion, err := d.await(ctx, log.CommandCapacity, blockIntf.SubmitCapacity)
	if err == nil {
		err = completion.Err
	}
	if err == nil && completion.Capacity == nil {
		err = fmt.Errorf("%w: capacity query returned no capacity", ErrResetRequired)
	}
	if err != nil {
		// The block status keeps its prior non-success value; the
		// device needs another reopen before I/O.
		d.logReopen(nil, time.Since(start), err)
		return err
	}

	capacity := *completion.Capacity

	d.mu.Lock()
	d.capacity = capacity
	d.optical = capacity.Optical
	d.shift = blockShiftFor(capacity)
	d.blockErr = nil
	shift := d.shift
	d.mu.Unlock()

	d.logReopen(&log.ReopenEvent{
		Blocks:    capacity.Blocks,
		BlockSize: capacity.BlockSize,
		Optical:   capacity.Optical,
		Shift:     shift,
	}, time.Since(start), nil)
	return nil
}

// logReopen emits a reopen event.
func (d *Device) logReopen(detail *log.ReopenEvent, elapsed time.Duration, err error) {
	if detail == nil {
		detail = &log.ReopenEvent{}
	}
	detail.Duration = &elapsed
	detail.Failed = err != nil

	d.mu.Lock()
	event := log.Event{
		Timestamp: time.Now(),
		Drive:     d.drive,
		DeviceID:  d.id.String(),
		URI:       d.uri.Redacted(),
		Layer:     log.LayerCore,
		Category:  log.CategoryReopen,
		Reopen:    detail,
	}
	logger := d.logger
	d.mu.Unlock()
	logger.Log(event)

	if err != nil {
		d.logError(log.LayerCore, "reopen", err)
	}
}
