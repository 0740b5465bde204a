package describe

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/sanboot-protocol/sanboot-go/pkg/san"
)

// TableVersion is the current description table format version.
const TableVersion = 1

// Table describes every registered SAN device for a booted OS.
type Table struct {
	// Version is the table format version.
	Version uint32 `cbor:"1,keyasint"`

	// BootDrive is the drive number the system booted from.
	BootDrive uint32 `cbor:"2,keyasint,omitempty"`

	// Entries holds one entry per device, in registration order.
	Entries []Entry `cbor:"3,keyasint"`
}

// Entry describes a single SAN device.
type Entry struct {
	// Drive is the conventional drive number.
	Drive uint32 `cbor:"1,keyasint"`

	// URI is the target URI with credentials redacted.
	URI string `cbor:"2,keyasint"`

	// RawBlocks is the raw block count reported by the transport.
	RawBlocks uint64 `cbor:"3,keyasint"`

	// RawBlockSize is the raw block size in bytes.
	RawBlockSize uint32 `cbor:"4,keyasint"`

	// LogicalBlocks is the block count after block size translation.
	LogicalBlocks uint64 `cbor:"5,keyasint"`

	// LogicalBlockSize is the block size after translation.
	LogicalBlockSize uint64 `cbor:"6,keyasint"`

	// Optical indicates optical media.
	Optical bool `cbor:"7,keyasint,omitempty"`

	// ID is the device instance identifier.
	ID uuid.UUID `cbor:"8,keyasint"`
}

// tableEncMode is the deterministic CBOR encoder mode for tables.
var tableEncMode cbor.EncMode

// tableDecMode is the CBOR decoder mode for tables.
var tableDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	tableEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create table CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	tableDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create table CBOR decoder mode: %v", err))
	}
}

// Build snapshots a registry into a description table. The boot drive
// is the registry's current boot resolution.
func Build(reg *san.Registry) Table {
	devices := reg.Devices()
	table := Table{
		Version:   TableVersion,
		BootDrive: reg.BootDrive(),
		Entries:   make([]Entry, 0, len(devices)),
	}
	for _, d := range devices {
		capacity := d.Capacity()
		table.Entries = append(table.Entries, Entry{
			Drive:            d.Drive(),
			URI:              d.URI().Redacted(),
			RawBlocks:        capacity.Blocks,
			RawBlockSize:     capacity.BlockSize,
			LogicalBlocks:    d.Blocks(),
			LogicalBlockSize: d.BlockSize(),
			Optical:          d.Optical(),
			ID:               d.ID(),
		})
	}
	return table
}

// Encode encodes a table to CBOR bytes.
func Encode(table Table) ([]byte, error) {
	return tableEncMode.Marshal(table)
}

// Decode decodes CBOR bytes into a table.
func Decode(data []byte) (Table, error) {
	var table Table
	if err := tableDecMode.Unmarshal(data, &table); err != nil {
		return Table{}, err
	}
	return table, nil
}

// Write encodes a table to w.
func Write(w io.Writer, table Table) error {
	return tableEncMode.NewEncoder(w).Encode(table)
}

// Read decodes a table from r.
func Read(r io.Reader) (Table, error) {
	var table Table
	if err := tableDecMode.NewDecoder(r).Decode(&table); err != nil {
		return Table{}, err
	}
	return table, nil
}
