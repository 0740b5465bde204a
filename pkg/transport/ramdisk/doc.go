// Package ramdisk implements a memory-backed SAN transport registered
// under the "ram" URI scheme.
//
// URIs name a disk in a Store and, on first open, its geometry:
//
//	ram://disk0?blocks=2048&blksize=512
//	ram://install?blocks=1024&blksize=2048&optical=1
//
// Later opens of the same name reattach to the existing disk, so data
// written before a connection loss is still there after a reopen. Disks
// support fault injection (failing or wedging the next operations), which
// is what the core's reopen and timeout paths are tested against.
package ramdisk
