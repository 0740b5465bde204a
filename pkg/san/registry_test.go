package san

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport/ramdisk"
)

func TestHookRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, reg := testSetup(t)

	drive, err := reg.Hook(ctx, mustParse(t, "ram://disk0?blocks=64&blksize=512"), DriveUnspecified)
	require.NoError(t, err)
	assert.Equal(t, DriveHardDisk, drive)

	d := reg.Find(drive)
	require.NotNil(t, d)
	assert.Equal(t, 1, d.Refs())
	assert.False(t, d.NeedsReopen())
	assert.Equal(t, uint64(64), d.Blocks())
	assert.Equal(t, uint64(512), d.BlockSize())

	pattern := bytes.Repeat([]byte{0xA5, 0x5A}, 512)
	require.NoError(t, d.WriteBlocks(ctx, 10, 2, pattern))

	got := make([]byte, 1024)
	require.NoError(t, d.ReadBlocks(ctx, 10, 2, got))
	assert.Equal(t, pattern, got)

	disk, ok := store.Get("disk0")
	require.True(t, ok)
	assert.Equal(t, 2, disk.Transfers()) // capacity probe is not a transfer
}

func TestHookDefaultDrives(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	first, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
	require.NoError(t, err)
	second, err := reg.Hook(ctx, mustParse(t, "ram://disk1"), DriveUnspecified)
	require.NoError(t, err)
	optical, err := reg.Hook(ctx, mustParse(t, "ram://cd0?optical=1"), DriveUnspecified)
	require.NoError(t, err)

	assert.Equal(t, DriveHardDisk, first)
	assert.Equal(t, DriveHardDisk+1, second)
	assert.Equal(t, DriveOptical, optical)

	// Freed slots are reused lowest-first.
	reg.Unhook(first)
	reused, err := reg.Hook(ctx, mustParse(t, "ram://disk2"), DriveUnspecified)
	require.NoError(t, err)
	assert.Equal(t, DriveHardDisk, reused)
}

func TestHookDuplicateDrive(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	_, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), 0x81)
	require.NoError(t, err)

	_, err = reg.Hook(ctx, mustParse(t, "ram://disk1"), 0x81)
	assert.ErrorIs(t, err, ErrDuplicateDrive)
	assert.Len(t, reg.Devices(), 1)
}

func TestHookOpenFailure(t *testing.T) {
	ctx := context.Background()
	store, reg := testSetup(t)
	disk := store.Create("disk0", block.Capacity{Blocks: 64, BlockSize: 512})
	disk.FailNextOpens(1)

	_, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
	assert.ErrorIs(t, err, ramdisk.ErrInjectedFault)
	assert.True(t, reg.Empty())
}

func TestRegisterUnregisterRefs(t *testing.T) {
	_, reg := testSetup(t)

	d, err := Allocate(mustParse(t, "ram://disk0"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Refs())

	require.NoError(t, reg.Register(d))
	assert.Equal(t, 2, d.Refs())
	assert.Equal(t, DriveHardDisk, d.Drive())

	reg.Unregister(d)
	assert.Equal(t, 1, d.Refs())
	assert.True(t, reg.Empty())

	d.Put()
	assert.Panics(t, func() { d.Get() })
}

func TestRegisterExplicitDriveConflict(t *testing.T) {
	_, reg := testSetup(t)

	a, err := Allocate(mustParse(t, "ram://disk0"), 0)
	require.NoError(t, err)
	a.SetDrive(0x90)
	require.NoError(t, reg.Register(a))

	b, err := Allocate(mustParse(t, "ram://disk1"), 0)
	require.NoError(t, err)
	b.SetDrive(0x90)
	err = reg.Register(b)
	assert.ErrorIs(t, err, ErrDuplicateDrive)
	assert.Equal(t, 1, b.Refs())
	b.Put()

	reg.Unregister(a)
	a.Put()
}

func TestUnregisterUnregisteredPanics(t *testing.T) {
	_, reg := testSetup(t)
	d, err := Allocate(mustParse(t, "ram://disk0"), 0)
	require.NoError(t, err)
	defer d.Put()

	assert.Panics(t, func() { reg.Unregister(d) })
}

func TestUnhookAbsent(t *testing.T) {
	_, reg := testSetup(t)
	assert.NotPanics(t, func() { reg.Unhook(0x80) })
	assert.True(t, reg.Empty())
}

func TestUnhookAll(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	for _, name := range []string{"ram://disk0", "ram://disk1", "ram://disk2"} {
		_, err := reg.Hook(ctx, mustParse(t, name), DriveUnspecified)
		require.NoError(t, err)
	}
	require.Len(t, reg.Devices(), 3)

	reg.UnhookAll()
	assert.True(t, reg.Empty())
}

func TestDevicesSnapshot(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	for _, name := range []string{"ram://disk0", "ram://disk1", "ram://disk2"} {
		_, err := reg.Hook(ctx, mustParse(t, name), DriveUnspecified)
		require.NoError(t, err)
	}

	// Unhooking mid-iteration must not disturb the snapshot.
	seen := 0
	for _, d := range reg.Devices() {
		reg.Unhook(d.Drive())
		seen++
	}
	assert.Equal(t, 3, seen)
	assert.True(t, reg.Empty())
}

func TestReopenExactlyOnceAfterFailure(t *testing.T) {
	ctx := context.Background()
	store, reg := testSetup(t)
	disk := store.Create("disk0", block.Capacity{Blocks: 64, BlockSize: 512})

	drive, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
	require.NoError(t, err)
	d := reg.Find(drive)
	require.NotNil(t, d)
	require.Equal(t, 1, disk.Opens())

	buf := make([]byte, 512)

	// A failed transfer is not retried; it leaves the device in the
	// needs-reopen state.
	disk.FailNextTransfers(1)
	err = d.WriteBlocks(ctx, 0, 1, buf)
	assert.ErrorIs(t, err, ramdisk.ErrInjectedFault)
	assert.True(t, d.NeedsReopen())
	assert.Equal(t, 1, disk.Opens())

	// The next operation reopens exactly once, then performs the
	// transfer.
	require.NoError(t, d.ReadBlocks(ctx, 0, 1, buf))
	assert.Equal(t, 2, disk.Opens())
	assert.False(t, d.NeedsReopen())

	// A healthy device does not reopen again.
	require.NoError(t, d.ReadBlocks(ctx, 0, 1, buf))
	assert.Equal(t, 2, disk.Opens())
}

func TestReopenFailureKeepsDevice(t *testing.T) {
	ctx := context.Background()
	store, reg := testSetup(t)
	disk := store.Create("disk0", block.Capacity{Blocks: 64, BlockSize: 512})

	drive, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
	require.NoError(t, err)
	d := reg.Find(drive)
	require.NotNil(t, d)

	buf := make([]byte, 512)
	disk.FailNextTransfers(1)
	require.Error(t, d.WriteBlocks(ctx, 0, 1, buf))

	// The single reopen attempt fails; the operation is aborted and the
	// device stays registered in the needs-reopen state.
	disk.FailNextOpens(1)
	err = d.ReadBlocks(ctx, 0, 1, buf)
	assert.ErrorIs(t, err, ramdisk.ErrInjectedFault)
	assert.True(t, d.NeedsReopen())
	assert.Equal(t, d, reg.Find(drive))

	// A later operation recovers once the target is reachable again.
	require.NoError(t, d.ReadBlocks(ctx, 0, 1, buf))
	assert.False(t, d.NeedsReopen())
}

func TestBlockSizeShiftTranslation(t *testing.T) {
	ctx := context.Background()
	store, reg := testSetup(t)
	disk := store.Create("cd0", block.Capacity{Blocks: 8192, BlockSize: 512, Optical: true})

	drive, err := reg.Hook(ctx, mustParse(t, "ram://cd0"), DriveUnspecified)
	require.NoError(t, err)
	assert.Equal(t, DriveOptical, drive)

	d := reg.Find(drive)
	require.NotNil(t, d)
	assert.Equal(t, uint32(2), d.BlockShift())
	assert.Equal(t, uint64(2048), d.BlockSize())
	assert.Equal(t, uint64(2048), d.Blocks())

	// One logical block is four raw blocks.
	pattern := bytes.Repeat([]byte{0xC3}, 2048)
	require.NoError(t, d.WriteBlocks(ctx, 3, 1, pattern))
	last := disk.LastTransfer()
	assert.Equal(t, uint64(12), last.LBA)
	assert.Equal(t, uint32(4), last.Count)
	assert.True(t, last.Write)

	got := make([]byte, 2048)
	require.NoError(t, d.ReadBlocks(ctx, 3, 1, got))
	assert.Equal(t, pattern, got)
}

func TestTransferValidation(t *testing.T) {
	ctx := context.Background()
	store, reg := testSetup(t)
	disk := store.Create("disk0", block.Capacity{Blocks: 64, BlockSize: 512})

	drive, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
	require.NoError(t, err)
	d := reg.Find(drive)
	require.NotNil(t, d)
	before := disk.Transfers()

	t.Run("zero count", func(t *testing.T) {
		err := d.ReadBlocks(ctx, 0, 0, make([]byte, 512))
		assert.ErrorIs(t, err, block.ErrInvalidRange)
	})

	t.Run("short buffer", func(t *testing.T) {
		err := d.ReadBlocks(ctx, 0, 2, make([]byte, 512))
		assert.ErrorIs(t, err, block.ErrShortBuffer)
	})

	t.Run("out of range", func(t *testing.T) {
		err := d.ReadBlocks(ctx, 63, 2, make([]byte, 1024))
		assert.ErrorIs(t, err, block.ErrOutOfRange)
	})

	// Validation failures never reach the transport.
	assert.Equal(t, before, disk.Transfers())
	assert.False(t, d.NeedsReopen())
}
