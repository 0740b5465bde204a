package block

import (
	"errors"
	"fmt"
)

// Conventional sector sizes.
const (
	// SectorSize is the conventional disk sector size in bytes.
	SectorSize = 512

	// OpticalSectorSize is the conventional CD-ROM sector size in bytes.
	OpticalSectorSize = 2048
)

// Range errors.
var (
	// ErrOutOfRange indicates a transfer extends beyond the device capacity.
	ErrOutOfRange = errors.New("block range beyond device capacity")

	// ErrInvalidRange indicates a transfer range that cannot be represented.
	ErrInvalidRange = errors.New("invalid block range")

	// ErrShortBuffer indicates a buffer smaller than the requested transfer.
	ErrShortBuffer = errors.New("buffer too small for transfer")
)

// Capacity is a raw capacity report from a transport.
type Capacity struct {
	// Blocks is the raw block count.
	Blocks uint64

	// BlockSize is the raw block size in bytes.
	BlockSize uint32

	// Optical indicates the target is optical media (CD/DVD).
	Optical bool
}

// Bytes returns the total capacity in bytes.
func (c Capacity) Bytes() uint64 {
	return c.Blocks * uint64(c.BlockSize)
}

// IsZero returns true if no capacity has been reported.
func (c Capacity) IsZero() bool {
	return c.Blocks == 0 && c.BlockSize == 0
}

// String returns a human-readable capacity description.
func (c Capacity) String() string {
	media := "disk"
	if c.Optical {
		media = "optical"
	}
	return fmt.Sprintf("%d blocks x %d bytes (%s)", c.Blocks, c.BlockSize, media)
}

// TransferRequest describes a single raw-block data transfer.
type TransferRequest struct {
	// LBA is the raw starting block address.
	LBA uint64

	// Count is the number of raw blocks to transfer.
	Count uint32

	// Buffer holds the data to write, or receives the data read.
	// Its length must be at least Count blocks.
	Buffer []byte

	// Write is true for a write transfer, false for a read.
	Write bool
}

// Validate checks the request against a raw block size.
func (r TransferRequest) Validate(blockSize uint32) error {
	if r.Count == 0 {
		return fmt.Errorf("%w: zero block count", ErrInvalidRange)
	}
	need := uint64(r.Count) * uint64(blockSize)
	if uint64(len(r.Buffer)) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(r.Buffer), need)
	}
	return nil
}

// CheckBounds verifies that the request fits within a capacity.
func (r TransferRequest) CheckBounds(c Capacity) error {
	end := r.LBA + uint64(r.Count)
	if end < r.LBA {
		return fmt.Errorf("%w: address overflow at lba %#x", ErrInvalidRange, r.LBA)
	}
	if end > c.Blocks {
		return fmt.Errorf("%w: [%d,%d) exceeds %d blocks", ErrOutOfRange, r.LBA, end, c.Blocks)
	}
	return nil
}
