package log

import (
	"time"
)

// Event represents a SAN layer log event. CBOR encoding uses integer
// keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Drive is the drive number of the device the event concerns
	// (zero before a drive number has been assigned).
	Drive uint32 `cbor:"2,keyasint,omitempty"`

	// DeviceID uniquely identifies the device (UUID).
	DeviceID string `cbor:"3,keyasint,omitempty"`

	// URI is the target URI with credentials redacted.
	URI string `cbor:"4,keyasint,omitempty"`

	// Layer where the event was captured.
	Layer Layer `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// Type-specific payload (one of these will be set).
	Lifecycle *LifecycleEvent `cbor:"7,keyasint,omitempty"`  // Device lifecycle
	Transfer  *TransferEvent  `cbor:"8,keyasint,omitempty"`  // Block data transfer
	Reopen    *ReopenEvent    `cbor:"9,keyasint,omitempty"`  // Reconnection
	Command   *CommandEvent   `cbor:"10,keyasint,omitempty"` // Timed command
	Error     *ErrorEventData `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the protocol backend (open/close, completions).
	LayerTransport Layer = 0
	// LayerBlock is the block I/O translation layer.
	LayerBlock Layer = 1
	// LayerCore is the device lifecycle and registry layer.
	LayerCore Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerBlock:
		return "BLOCK"
	case LayerCore:
		return "CORE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLifecycle indicates a device lifecycle transition.
	CategoryLifecycle Category = 0
	// CategoryTransfer indicates a block data transfer.
	CategoryTransfer Category = 1
	// CategoryReopen indicates a reconnection attempt.
	CategoryReopen Category = 2
	// CategoryCommand indicates a timed command on an interface.
	CategoryCommand Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryTransfer:
		return "TRANSFER"
	case CategoryReopen:
		return "REOPEN"
	case CategoryCommand:
		return "COMMAND"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LifecycleEvent captures a device lifecycle transition.
type LifecycleEvent struct {
	// Action is the lifecycle transition.
	Action LifecycleAction `cbor:"1,keyasint"`

	// Refs is the device reference count after the transition.
	Refs int `cbor:"2,keyasint,omitempty"`
}

// LifecycleAction identifies a lifecycle transition.
type LifecycleAction uint8

const (
	// ActionAllocated indicates the device was allocated.
	ActionAllocated LifecycleAction = 0
	// ActionRegistered indicates the device entered the registry.
	ActionRegistered LifecycleAction = 1
	// ActionUnregistered indicates the device left the registry.
	ActionUnregistered LifecycleAction = 2
	// ActionHooked indicates a completed hook.
	ActionHooked LifecycleAction = 3
	// ActionUnhooked indicates a completed unhook.
	ActionUnhooked LifecycleAction = 4
	// ActionReleased indicates the last reference was dropped.
	ActionReleased LifecycleAction = 5
)

// String returns the action name.
func (a LifecycleAction) String() string {
	switch a {
	case ActionAllocated:
		return "ALLOCATED"
	case ActionRegistered:
		return "REGISTERED"
	case ActionUnregistered:
		return "UNREGISTERED"
	case ActionHooked:
		return "HOOKED"
	case ActionUnhooked:
		return "UNHOOKED"
	case ActionReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// TransferEvent captures a block data transfer through the translator.
type TransferEvent struct {
	// LBA is the logical (post-shift) starting block address.
	LBA uint64 `cbor:"1,keyasint"`

	// Count is the logical block count.
	Count uint32 `cbor:"2,keyasint"`

	// RawLBA is the raw starting block address dispatched downstream.
	RawLBA uint64 `cbor:"3,keyasint"`

	// RawCount is the raw block count dispatched downstream.
	RawCount uint32 `cbor:"4,keyasint"`

	// Write is true for writes, false for reads.
	Write bool `cbor:"5,keyasint,omitempty"`

	// Duration is the time from dispatch to completion.
	Duration *time.Duration `cbor:"6,keyasint,omitempty"`

	// Failed indicates the transfer completed with an error.
	Failed bool `cbor:"7,keyasint,omitempty"`
}

// ReopenEvent captures a reconnection attempt.
type ReopenEvent struct {
	// Blocks is the raw block count reported by the capacity probe.
	Blocks uint64 `cbor:"1,keyasint,omitempty"`

	// BlockSize is the raw block size reported by the capacity probe.
	BlockSize uint32 `cbor:"2,keyasint,omitempty"`

	// Optical indicates the target reported optical media.
	Optical bool `cbor:"3,keyasint,omitempty"`

	// Shift is the recomputed block size shift.
	Shift uint32 `cbor:"4,keyasint,omitempty"`

	// Duration is the time the attempt took.
	Duration *time.Duration `cbor:"5,keyasint,omitempty"`

	// Failed indicates the attempt failed.
	Failed bool `cbor:"6,keyasint,omitempty"`
}

// CommandEvent captures a single timed command on an interface.
type CommandEvent struct {
	// Kind is the command kind.
	Kind CommandKind `cbor:"1,keyasint"`

	// Tag is the completion tag the command was submitted with (UUID).
	Tag string `cbor:"2,keyasint,omitempty"`

	// Window is the timeout window the command ran under.
	Window time.Duration `cbor:"3,keyasint,omitempty"`

	// Expired indicates the command timer fired before completion.
	Expired bool `cbor:"4,keyasint,omitempty"`

	// Duration is the time from submission to completion or expiry.
	Duration *time.Duration `cbor:"5,keyasint,omitempty"`
}

// CommandKind identifies a timed command.
type CommandKind uint8

const (
	// CommandCapacity is a capacity query.
	CommandCapacity CommandKind = 0
	// CommandTransfer is a data transfer.
	CommandTransfer CommandKind = 1
	// CommandReset is a protocol-level reset.
	CommandReset CommandKind = 2
)

// String returns the command kind name.
func (k CommandKind) String() string {
	switch k {
	case CommandCapacity:
		return "CAPACITY"
	case CommandTransfer:
		return "TRANSFER"
	case CommandReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
