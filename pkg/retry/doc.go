// Package retry implements the command timeout governor used by SAN
// devices.
//
// Each device owns one Timer, armed while a command is outstanding on one
// of its interfaces. If the transport does not complete the command within
// the current window the timer fires, the command is failed with
// ErrTimeout, and the window for the next attempt widens (exponential
// growth, bounded). A completed command resets the window.
//
// One attempt per call: the governor bounds how long a single command may
// take, it never re-issues commands on its own.
package retry
