// Package log provides structured event logging for the SAN layer.
//
// Every device lifecycle transition, reopen, command, and data transfer
// is captured as an Event. Events are CBOR-encoded with integer keys for
// compact on-disk streams; FileLogger appends them to a file, Reader
// decodes and filters them back, SlogAdapter bridges to log/slog for
// console output, and MultiLogger fans out to several sinks at once.
//
// Logging must never disrupt I/O: implementations of Logger are expected
// to be fast or to queue, and encoding errors in FileLogger are dropped.
package log
