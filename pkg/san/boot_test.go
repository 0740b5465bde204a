package san

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMBR places a conventional boot signature in block 0 of the
// device.
func writeMBR(t *testing.T, ctx context.Context, d *Device) {
	t.Helper()
	buf := make([]byte, 512)
	buf[510] = 0x55
	buf[511] = 0xAA
	require.NoError(t, d.WriteBlocks(ctx, 0, 1, buf))
}

// writePVD places an ISO9660 primary volume descriptor in logical
// sector 16 of the device.
func writePVD(t *testing.T, ctx context.Context, d *Device) {
	t.Helper()
	buf := make([]byte, d.BlockSize())
	buf[0] = 0x01
	copy(buf[1:6], "CD001")
	require.NoError(t, d.WriteBlocks(ctx, isoPVDSector, 1, buf))
}

func TestBootDisk(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	drive, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
	require.NoError(t, err)
	d := reg.Find(drive)
	require.NotNil(t, d)
	writeMBR(t, ctx, d)

	var booted *Device
	handler := func(ctx context.Context, d *Device) error {
		booted = d
		return nil
	}

	t.Run("explicit drive", func(t *testing.T) {
		booted = nil
		require.NoError(t, reg.Boot(ctx, drive, handler))
		assert.Equal(t, d, booted)
	})

	t.Run("unspecified drive resolves first hooked", func(t *testing.T) {
		booted = nil
		require.NoError(t, reg.Boot(ctx, DriveUnspecified, handler))
		assert.Equal(t, d, booted)
	})
}

func TestBootNotBootable(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	drive, err := reg.Hook(ctx, mustParse(t, "ram://blank0"), DriveUnspecified)
	require.NoError(t, err)

	handler := func(ctx context.Context, d *Device) error { return nil }
	err = reg.Boot(ctx, drive, handler)
	assert.ErrorIs(t, err, ErrNotBootable)
}

func TestBootOptical(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)

	drive, err := reg.Hook(ctx, mustParse(t, "ram://cd0?blocks=8192&optical=1"), DriveUnspecified)
	require.NoError(t, err)
	d := reg.Find(drive)
	require.NotNil(t, d)

	handler := func(ctx context.Context, d *Device) error { return nil }

	// Blank optical media is not bootable.
	err = reg.Boot(ctx, drive, handler)
	assert.ErrorIs(t, err, ErrNotBootable)

	writePVD(t, ctx, d)
	assert.NoError(t, reg.Boot(ctx, drive, handler))
}

func TestBootErrors(t *testing.T) {
	ctx := context.Background()
	_, reg := testSetup(t)
	handler := func(ctx context.Context, d *Device) error { return nil }

	t.Run("no handler", func(t *testing.T) {
		err := reg.Boot(ctx, DriveHardDisk, nil)
		assert.ErrorIs(t, err, ErrNoBootHandler)
	})

	t.Run("empty registry", func(t *testing.T) {
		err := reg.Boot(ctx, DriveUnspecified, handler)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown drive", func(t *testing.T) {
		_, err := reg.Hook(ctx, mustParse(t, "ram://disk0"), DriveUnspecified)
		require.NoError(t, err)
		err = reg.Boot(ctx, 0xC0, handler)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
