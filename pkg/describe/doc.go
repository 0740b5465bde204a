// Package describe builds the SAN description table handed to a booted
// operating system: one entry per registered device, identifying the
// drive number, target URI, and geometry the OS needs to re-attach the
// device. Tables are CBOR-encoded with integer keys.
package describe
