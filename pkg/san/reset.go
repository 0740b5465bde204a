package san

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sanboot-protocol/sanboot-go/pkg/log"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport"
)

// Reset issues a protocol-level reset through the command interface.
// The reset runs under the command timer like any other command; on
// success the command interface status is cleared.
func (d *Device) Reset(ctx context.Context) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	d.Get()
	defer d.Put()

	d.mu.Lock()
	command := d.command
	d.mu.Unlock()

	if command == nil {
		return fmt.Errorf("%w: no command interface", transport.ErrClosed)
	}

	completion, err := d.await(ctx, log.CommandReset, func(tag uuid.UUID) (<-chan transport.Completion, error) {
		return command.SubmitReset(tag)
	})
	if err == nil {
		err = completion.Err
	}

	d.mu.Lock()
	d.commandErr = err
	d.mu.Unlock()

	if err != nil {
		d.logError(log.LayerTransport, "reset", err)
	}
	return err
}
