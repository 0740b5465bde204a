// Package san implements the SAN device core: device allocation and
// registration, the drive-number registry, reconnection ("reopen"), and
// the translation of logical block I/O into raw transfers dispatched
// through a transport backend.
//
// A Device is created with Allocate, made visible with Register (or the
// combined Hook entry point, which also opens its interfaces and probes
// capacity), and torn down with Unregister/Unhook. While hooked, reads
// and writes go through the block-size-shift translator: logical blocks
// may be coarser than the raw blocks the transport speaks (CD-ROM
// emulation over fine-grained transports).
//
// Connection failures are handled lazily. A failed transfer or timeout
// marks the device as needing reopen; the next I/O call re-establishes
// the connection once before transferring. A failed transfer is never
// re-issued transparently; retry policy belongs to the caller.
//
// Commands on one device are serialized: at most one transfer, reopen,
// or reset is outstanding at a time. Devices are independent of one
// another.
package san
