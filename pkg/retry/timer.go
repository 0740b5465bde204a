package retry

import (
	"errors"
	"sync"
	"time"
)

// Timer errors.
var (
	// ErrTimeout indicates a command did not complete within its window.
	ErrTimeout = errors.New("command timed out")

	// ErrTimerRunning indicates the timer is already armed.
	ErrTimerRunning = errors.New("command timer already running")
)

// Timer governs the timeout window of the single outstanding command on a
// device interface. It is armed when the command is submitted and disarmed
// when the completion arrives; an expiry widens the window used for the
// next command.
type Timer struct {
	mu sync.Mutex

	backoff *Backoff

	timer   *time.Timer
	running bool

	// Expiry channel for the currently armed window.
	expired chan time.Time

	// Callback invoked on expiry (optional).
	onExpire func()
}

// NewTimer creates a command timer with the default window settings.
func NewTimer() *Timer {
	return &Timer{backoff: NewBackoff()}
}

// NewTimerWithBackoff creates a command timer with a custom window policy.
func NewTimerWithBackoff(b *Backoff) *Timer {
	if b == nil {
		b = NewBackoff()
	}
	return &Timer{backoff: b}
}

// OnExpire sets a callback invoked when an armed window expires.
func (t *Timer) OnExpire(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = fn
}

// Start arms the timer for the current window and returns the expiry
// channel. The channel receives at most one value. Returns
// ErrTimerRunning if a window is already armed: commands on a device may
// not be pipelined.
func (t *Timer) Start() (<-chan time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil, ErrTimerRunning
	}

	window := t.backoff.Peek()
	expired := make(chan time.Time, 1)

	t.timer = time.AfterFunc(window, func() {
		t.expire(expired)
	})
	t.expired = expired
	t.running = true

	return expired, nil
}

// expire records an expiry: widens the next window and notifies.
func (t *Timer) expire(expired chan time.Time) {
	t.mu.Lock()
	if !t.running || t.expired != expired {
		// Stopped (or re-armed) after the timer fired but before we
		// took the lock; the expiry is stale.
		t.mu.Unlock()
		return
	}
	t.running = false
	t.expired = nil
	t.backoff.Next()
	fn := t.onExpire
	t.mu.Unlock()

	expired <- time.Now()
	if fn != nil {
		fn()
	}
}

// Stop disarms the timer. The expiry channel from Start will never fire
// after Stop returns true. Returns false if the timer was not armed (it
// may already have expired).
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}
	t.timer.Stop()
	t.running = false
	t.expired = nil
	return true
}

// Running returns true while a window is armed.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Reset restores the initial window. Call after a completed command.
func (t *Timer) Reset() {
	t.backoff.Reset()
}

// Window returns the current base window.
func (t *Timer) Window() time.Duration {
	return t.backoff.Current()
}

// Expiries returns the number of expiries since the last reset.
func (t *Timer) Expiries() int {
	return t.backoff.Expiries()
}
