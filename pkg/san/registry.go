package san

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sanboot-protocol/sanboot-go/pkg/log"
	"github.com/sanboot-protocol/sanboot-go/pkg/retry"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport"
)

// Config customizes a registry.
type Config struct {
	// Open resolves device URIs to interface pairs. Defaults to the
	// process-wide transport scheme registry.
	Open transport.OpenFunc

	// Logger receives events for every device hooked through this
	// registry. Defaults to NoopLogger.
	Logger log.Logger

	// NewTimer constructs the command timer for each hooked device.
	// Defaults to retry.NewTimer.
	NewTimer func() *retry.Timer
}

// Registry is the ordered collection of registered SAN devices. Devices
// are kept in registration order; iteration via Devices operates on a
// snapshot, so devices may be unregistered mid-iteration.
type Registry struct {
	mu      sync.Mutex
	devices []*Device
	cfg     Config
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	return &Registry{cfg: cfg}
}

// Find returns the device registered under drive, or nil.
func (r *Registry) Find(drive uint32) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(drive)
}

func (r *Registry) findLocked(drive uint32) *Device {
	for _, d := range r.devices {
		if d.Drive() == drive {
			return d
		}
	}
	return nil
}

// Exists reports whether a device is registered under drive.
func (r *Registry) Exists(drive uint32) bool {
	return r.Find(drive) != nil
}

// Empty reports whether no devices are registered.
func (r *Registry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices) == 0
}

// Devices returns a snapshot of the registered devices in registration
// order.
func (r *Registry) Devices() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]*Device, len(r.devices))
	copy(snapshot, r.devices)
	return snapshot
}

// DefaultDrive returns the lowest unused drive number in the
// conventional range for the media type: hard disks from 0x80, optical
// media from 0xE0.
func (r *Registry) DefaultDrive(optical bool) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultDriveLocked(optical)
}

func (r *Registry) defaultDriveLocked(optical bool) uint32 {
	drive := DriveHardDisk
	if optical {
		drive = DriveOptical
	}
	for r.findLocked(drive) != nil {
		drive++
	}
	return drive
}

// Register adds a device to the registry and takes a reference on it.
// A device with DriveUnspecified is assigned the default drive number
// for its media type; an explicit drive number that is already in use
// fails with ErrDuplicateDrive.
func (r *Registry) Register(d *Device) error {
	r.mu.Lock()
	drive := d.Drive()
	if drive == DriveUnspecified {
		drive = r.defaultDriveLocked(d.Optical())
		d.SetDrive(drive)
	} else if r.findLocked(drive) != nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %#02x", ErrDuplicateDrive, drive)
	}

	d.Get()
	d.mu.Lock()
	d.registered = true
	d.mu.Unlock()
	r.devices = append(r.devices, d)
	r.mu.Unlock()

	d.logLifecycle(log.ActionRegistered)
	return nil
}

// Unregister removes a device from the registry, shuts down its
// interfaces, and drops the registry's reference. Unregistering a
// device that is not registered is a contract violation and panics.
func (r *Registry) Unregister(d *Device) {
	r.mu.Lock()
	idx := -1
	for i, dev := range r.devices {
		if dev == d {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		panic("san: Unregister of unregistered device")
	}
	r.devices = append(r.devices[:idx], r.devices[idx+1:]...)
	r.mu.Unlock()

	d.mu.Lock()
	d.registered = false
	d.mu.Unlock()

	d.closeInterfaces()
	d.timer.Stop()
	d.logLifecycle(log.ActionUnregistered)
	d.Put()
}

// Hook allocates a device for uri, opens it, and registers it under
// drive (DriveUnspecified selects the default drive for the probed
// media type). On success the registry holds the only reference and the
// assigned drive number is returned; on failure everything is unwound
// and no device remains.
func (r *Registry) Hook(ctx context.Context, uri *url.URL, drive uint32) (uint32, error) {
	return r.HookWithPriv(ctx, uri, drive, 0)
}

// HookWithPriv is Hook with a driver private-data area of privSize
// bytes.
func (r *Registry) HookWithPriv(ctx context.Context, uri *url.URL, drive uint32, privSize int) (uint32, error) {
	var timer *retry.Timer
	if r.cfg.NewTimer != nil {
		timer = r.cfg.NewTimer()
	}
	d, err := AllocateWithConfig(uri, privSize, DeviceConfig{
		Open:   r.cfg.Open,
		Logger: r.cfg.Logger,
		Timer:  timer,
	})
	if err != nil {
		return 0, err
	}
	d.SetDrive(drive)

	// The initial open happens before registration so the probed media
	// type can steer default drive assignment.
	if err := d.Reopen(ctx); err != nil {
		d.Put()
		return 0, err
	}
	if err := r.Register(d); err != nil {
		d.Put()
		return 0, err
	}

	assigned := d.Drive()
	d.logLifecycle(log.ActionHooked)
	d.Put()
	return assigned, nil
}

// Unhook removes the device registered under drive. An absent drive is
// a logged no-op.
func (r *Registry) Unhook(drive uint32) {
	d := r.Find(drive)
	if d == nil {
		r.cfg.Logger.Log(log.Event{
			Timestamp: time.Now(),
			Drive:     drive,
			Layer:     log.LayerCore,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerCore,
				Message: fmt.Sprintf("%v: %#02x", ErrNotFound, drive),
				Context: "unhook",
			},
		})
		return
	}
	d.logLifecycle(log.ActionUnhooked)
	r.Unregister(d)
}

// UnhookAll removes every registered device, most recently hooked
// first.
func (r *Registry) UnhookAll() {
	devices := r.Devices()
	for i := len(devices) - 1; i >= 0; i-- {
		devices[i].logLifecycle(log.ActionUnhooked)
		r.Unregister(devices[i])
	}
}
