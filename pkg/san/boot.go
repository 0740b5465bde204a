package san

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sanboot-protocol/sanboot-go/pkg/log"
)

// BootHandler receives a validated, bootable device. The actual
// operating system hand-off lives outside this package.
type BootHandler func(ctx context.Context, d *Device) error

// mbrSignature is the conventional boot signature at the end of a
// 512-byte master boot record.
var mbrSignature = []byte{0x55, 0xAA}

// isoIdentifier is the standard identifier of an ISO9660 volume
// descriptor.
var isoIdentifier = []byte("CD001")

// isoPVDSector is the logical sector holding the primary volume
// descriptor on ISO9660 media.
const isoPVDSector = 16

// isoTypePrimary is the volume descriptor type of the primary volume
// descriptor.
const isoTypePrimary = 0x01

// BootDrive returns the drive number a boot with DriveUnspecified
// resolves to: the first registered device's drive, or DriveUnspecified
// when the registry is empty.
func (r *Registry) BootDrive() uint32 {
	devices := r.Devices()
	if len(devices) == 0 {
		return DriveUnspecified
	}
	return devices[0].Drive()
}

// Boot validates that the device under drive carries a recognized boot
// record and hands it to handler. A drive of DriveUnspecified resolves
// to the first registered device.
func (r *Registry) Boot(ctx context.Context, drive uint32, handler BootHandler) error {
	if handler == nil {
		return ErrNoBootHandler
	}
	if drive == DriveUnspecified {
		drive = r.BootDrive()
	}
	d := r.Find(drive)
	if d == nil {
		return fmt.Errorf("%w: %#02x", ErrNotFound, drive)
	}

	// Hold the device across the bootability check and the hand-off.
	d.Get()
	defer d.Put()

	if err := checkBootable(ctx, d); err != nil {
		d.logError(log.LayerCore, "boot", err)
		return err
	}
	return handler(ctx, d)
}

// checkBootable reads the boot record of the device and verifies its
// signature: the 0x55AA marker for disks, the ISO9660 primary volume
// descriptor for optical media.
func checkBootable(ctx context.Context, d *Device) error {
	blockSize := d.BlockSize()
	if blockSize == 0 {
		return fmt.Errorf("%w: zero block size", ErrNotBootable)
	}
	buf := make([]byte, blockSize)

	if d.Optical() {
		if err := d.ReadBlocks(ctx, isoPVDSector, 1, buf); err != nil {
			return err
		}
		if len(buf) < 6 || buf[0] != isoTypePrimary || !bytes.Equal(buf[1:6], isoIdentifier) {
			return fmt.Errorf("%w: no primary volume descriptor", ErrNotBootable)
		}
		return nil
	}

	if err := d.ReadBlocks(ctx, 0, 1, buf); err != nil {
		return err
	}
	if len(buf) < 512 || !bytes.Equal(buf[510:512], mbrSignature) {
		return fmt.Errorf("%w: missing boot signature", ErrNotBootable)
	}
	return nil
}
