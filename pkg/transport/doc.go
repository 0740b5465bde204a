// Package transport defines the asynchronous interface contract between
// the SAN core and the protocol backends (iSCSI, AoE, HTTP, ...), and the
// scheme registry through which a backend is selected for a URI.
//
// A backend produces two independent endpoints per device: a command
// interface for control operations (reset) and a block interface for
// capacity queries and data transfer. Both are asynchronous: Submit*
// returns immediately with a completion channel, and the completion is
// delivered later, exactly once, unless the interface is closed first.
// Closing an interface is the cancellation signal for anything still in
// flight on it.
//
// Backends register themselves by URI scheme, typically from an init
// function, and the core resolves a URI to an open interface pair with
// Open. The ramdisk subpackage provides a memory-backed reference backend.
package transport
