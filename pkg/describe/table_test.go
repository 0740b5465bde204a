package describe

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanboot-protocol/sanboot-go/pkg/retry"
	"github.com/sanboot-protocol/sanboot-go/pkg/san"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport/ramdisk"
)

func testRegistry(t *testing.T) *san.Registry {
	t.Helper()
	opener := ramdisk.NewOpener(ramdisk.NewStore())
	return san.NewRegistry(san.Config{
		Open:     opener.Open,
		NewTimer: retry.NewTimer,
	})
}

func hook(t *testing.T, reg *san.Registry, raw string) uint32 {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	drive, err := reg.Hook(context.Background(), u, san.DriveUnspecified)
	require.NoError(t, err)
	return drive
}

func TestBuild(t *testing.T) {
	reg := testRegistry(t)
	diskDrive := hook(t, reg, "ram://disk0?blocks=64&blksize=512")
	cdDrive := hook(t, reg, "ram://cd0?blocks=8192&optical=1")

	table := Build(reg)
	assert.Equal(t, uint32(TableVersion), table.Version)
	assert.Equal(t, diskDrive, table.BootDrive)
	require.Len(t, table.Entries, 2)

	disk := table.Entries[0]
	assert.Equal(t, diskDrive, disk.Drive)
	assert.Equal(t, "ram://disk0?blocks=64&blksize=512", disk.URI)
	assert.Equal(t, uint64(64), disk.RawBlocks)
	assert.Equal(t, uint32(512), disk.RawBlockSize)
	assert.Equal(t, uint64(64), disk.LogicalBlocks)
	assert.Equal(t, uint64(512), disk.LogicalBlockSize)
	assert.False(t, disk.Optical)

	cd := table.Entries[1]
	assert.Equal(t, cdDrive, cd.Drive)
	assert.True(t, cd.Optical)
	assert.Equal(t, uint64(8192), cd.RawBlocks)
	assert.Equal(t, uint64(2048), cd.LogicalBlocks)
	assert.Equal(t, uint64(2048), cd.LogicalBlockSize)
}

func TestBuildEmpty(t *testing.T) {
	table := Build(testRegistry(t))
	assert.Equal(t, uint32(0), table.BootDrive)
	assert.Empty(t, table.Entries)
}

func TestRedactsCredentials(t *testing.T) {
	reg := testRegistry(t)

	u, err := url.Parse("ram://disk0")
	require.NoError(t, err)
	u.User = url.UserPassword("initiator", "chapsecret")
	_, err = reg.Hook(context.Background(), u, san.DriveUnspecified)
	require.NoError(t, err)

	table := Build(reg)
	require.Len(t, table.Entries, 1)
	assert.NotContains(t, table.Entries[0].URI, "chapsecret")
	assert.Contains(t, table.Entries[0].URI, "initiator")
}

func TestEncodeDecode(t *testing.T) {
	reg := testRegistry(t)
	hook(t, reg, "ram://disk0")
	original := Build(reg)

	data, err := Encode(original)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, original))
	read, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, read)
}
