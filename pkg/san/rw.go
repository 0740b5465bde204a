package san

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
	"github.com/sanboot-protocol/sanboot-go/pkg/log"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport"
)

// ReadBlocks reads count logical blocks starting at lba into buf.
func (d *Device) ReadBlocks(ctx context.Context, lba uint64, count uint32, buf []byte) error {
	return d.rw(ctx, lba, count, buf, false)
}

// WriteBlocks writes count logical blocks starting at lba from buf.
func (d *Device) WriteBlocks(ctx context.Context, lba uint64, count uint32, buf []byte) error {
	return d.rw(ctx, lba, count, buf, true)
}

// rw translates a logical block request into a raw transfer and
// dispatches it through the block interface.
//
// If the device needs a reopen, exactly one reopen attempt is made
// first; if that fails, the operation is aborted with the reopen's error
// and no transfer is issued. A transfer that fails leaves the device in
// the needs-reopen state; it is not re-issued transparently.
func (d *Device) rw(ctx context.Context, lba uint64, count uint32, buf []byte, write bool) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	// The in-flight operation holds its own reference across the wait.
	d.Get()
	defer d.Put()

	if d.NeedsReopen() {
		if err := d.reopenLocked(ctx); err != nil {
			return err
		}
	}

	d.mu.Lock()
	shift := d.shift
	capacity := d.capacity
	blockIntf := d.blockIntf
	d.mu.Unlock()

	// Address translation: logical to raw, rejecting shifts that lose
	// address bits.
	rawLBA := lba << shift
	if rawLBA>>shift != lba {
		return fmt.Errorf("%w: logical address %#x overflows shift %d", block.ErrInvalidRange, lba, shift)
	}
	rawCount64 := uint64(count) << shift
	if rawCount64 > math.MaxUint32 {
		return fmt.Errorf("%w: logical count %d overflows shift %d", block.ErrInvalidRange, count, shift)
	}

	req := block.TransferRequest{
		LBA:    rawLBA,
		Count:  uint32(rawCount64),
		Buffer: buf,
		Write:  write,
	}
	if err := req.Validate(capacity.BlockSize); err != nil {
		return err
	}
	if err := req.CheckBounds(capacity); err != nil {
		return err
	}

	start := time.Now()
	completion, err := d.await(ctx, log.CommandTransfer, func(tag uuid.UUID) (<-chan transport.Completion, error) {
		return blockIntf.SubmitTransfer(tag, req)
	})
	if err == nil {
		err = completion.Err
	}

	// Record the completion status; a failure makes the next call
	// reopen first.
	d.mu.Lock()
	d.blockErr = err
	d.mu.Unlock()

	d.logTransfer(lba, count, req, time.Since(start), err)
	if err != nil {
		d.logError(log.LayerBlock, "transfer", err)
		return err
	}
	return nil
}

// logTransfer emits a transfer event.
func (d *Device) logTransfer(lba uint64, count uint32, req block.TransferRequest, elapsed time.Duration, err error) {
	d.mu.Lock()
	event := log.Event{
		Timestamp: time.Now(),
		Drive:     d.drive,
		DeviceID:  d.id.String(),
		Layer:     log.LayerBlock,
		Category:  log.CategoryTransfer,
		Transfer: &log.TransferEvent{
			LBA:      lba,
			Count:    count,
			RawLBA:   req.LBA,
			RawCount: req.Count,
			Write:    req.Write,
			Duration: &elapsed,
			Failed:   err != nil,
		},
	}
	logger := d.logger
	d.mu.Unlock()
	logger.Log(event)
}
