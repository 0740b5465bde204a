package ramdisk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
)

// Default geometry for disks created without explicit parameters.
const (
	// DefaultBlocks is the default raw block count.
	DefaultBlocks = 2048

	// DefaultBlockSize is the default raw block size in bytes.
	DefaultBlockSize = block.SectorSize
)

// Backend errors.
var (
	// ErrInjectedFault is returned by operations failed through fault
	// injection.
	ErrInjectedFault = errors.New("injected fault")

	// ErrNoDiskName indicates a URI that does not name a disk.
	ErrNoDiskName = errors.New("ram URI has no disk name")
)

// Disk is a single in-memory disk.
type Disk struct {
	mu sync.Mutex

	name     string
	capacity block.Capacity
	data     []byte

	// Fault injection
	failOpens     int
	failTransfers int
	wedged        bool

	// Observation counters for tests
	opens        int
	transfers    int
	lastTransfer block.TransferRequest
}

func newDisk(name string, capacity block.Capacity) *Disk {
	return &Disk{
		name:     name,
		capacity: capacity,
		data:     make([]byte, capacity.Bytes()),
	}
}

// Name returns the disk name.
func (d *Disk) Name() string { return d.name }

// Capacity returns the disk geometry.
func (d *Disk) Capacity() block.Capacity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capacity
}

// FailNextOpens makes the next n opens of this disk fail.
func (d *Disk) FailNextOpens(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failOpens = n
}

// FailNextTransfers makes the next n transfers fail.
func (d *Disk) FailNextTransfers(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failTransfers = n
}

// SetWedged controls wedge mode: while wedged, submitted operations are
// accepted but never complete, as on a hung connection.
func (d *Disk) SetWedged(wedged bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wedged = wedged
}

// Opens returns how many times the disk has been opened.
func (d *Disk) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Transfers returns how many transfers the disk has observed.
func (d *Disk) Transfers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transfers
}

// LastTransfer returns the most recently observed transfer request
// (without its buffer).
func (d *Disk) LastTransfer() block.TransferRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTransfer
}

// open records an open attempt, honouring injected open faults.
func (d *Disk) open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOpens > 0 {
		d.failOpens--
		return fmt.Errorf("%w: open of %q", ErrInjectedFault, d.name)
	}
	d.opens++
	return nil
}

// isWedged reports wedge mode.
func (d *Disk) isWedged() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wedged
}

// transfer performs a raw-block copy in or out of the disk.
func (d *Disk) transfer(req block.TransferRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.transfers++
	d.lastTransfer = block.TransferRequest{
		LBA:   req.LBA,
		Count: req.Count,
		Write: req.Write,
	}

	if d.failTransfers > 0 {
		d.failTransfers--
		return fmt.Errorf("%w: transfer on %q", ErrInjectedFault, d.name)
	}

	if err := req.Validate(d.capacity.BlockSize); err != nil {
		return err
	}
	if err := req.CheckBounds(d.capacity); err != nil {
		return err
	}

	offset := req.LBA * uint64(d.capacity.BlockSize)
	length := uint64(req.Count) * uint64(d.capacity.BlockSize)
	if req.Write {
		copy(d.data[offset:offset+length], req.Buffer)
	} else {
		copy(req.Buffer, d.data[offset:offset+length])
	}
	return nil
}

// Store is a collection of named disks shared by every connection opened
// through the same backend instance.
type Store struct {
	mu    sync.Mutex
	disks map[string]*Disk
}

// NewStore creates an empty disk store.
func NewStore() *Store {
	return &Store{disks: make(map[string]*Disk)}
}

// Create adds a disk with the given geometry, replacing any existing disk
// of the same name.
func (s *Store) Create(name string, capacity block.Capacity) *Disk {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := newDisk(name, capacity)
	s.disks[name] = d
	return d
}

// Get returns the named disk.
func (s *Store) Get(name string) (*Disk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disks[name]
	return d, ok
}

// getOrCreate returns the named disk, creating it with the given geometry
// on first reference.
func (s *Store) getOrCreate(name string, capacity block.Capacity) *Disk {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.disks[name]; ok {
		return d
	}
	d := newDisk(name, capacity)
	s.disks[name] = d
	return d
}

// Remove deletes a disk and its contents.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.disks, name)
}

// DefaultStore backs the opener registered with the default transport
// scheme registry.
var DefaultStore = NewStore()
