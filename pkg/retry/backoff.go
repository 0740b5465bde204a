package retry

import (
	"math/rand"
	"sync"
	"time"
)

// Timeout window constants.
const (
	// InitialTimeout is the initial command timeout window.
	InitialTimeout = 5 * time.Second

	// MaxTimeout is the maximum command timeout window.
	MaxTimeout = 30 * time.Second

	// TimeoutMultiplier is the factor by which the window widens after
	// an expiry.
	TimeoutMultiplier = 2.0
)

// Backoff calculates the widening command timeout window.
type Backoff struct {
	mu sync.Mutex

	// Current window (before jitter)
	current time.Duration

	// Configuration
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	// Expiry counter
	expiries int

	// Random source for jitter
	rng *rand.Rand
}

// NewBackoff creates a backoff calculator with default settings.
func NewBackoff() *Backoff {
	return &Backoff{
		current:    InitialTimeout,
		initial:    InitialTimeout,
		max:        MaxTimeout,
		multiplier: TimeoutMultiplier,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BackoffConfig allows customizing backoff parameters.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialTimeout
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxTimeout
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = TimeoutMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	return &Backoff{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the current window (with jitter) and widens the window for
// the attempt after it. Call on expiry.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	window := b.addJitter(b.current)

	b.expiries++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return window
}

// Peek returns the current window without widening.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addJitter(b.current)
}

// Reset restores the initial window. Call after a completed command.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.expiries = 0
}

// Expiries returns the number of expiries since the last reset.
func (b *Backoff) Expiries() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expiries
}

// Current returns the current base window (without jitter).
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// addJitter adds random jitter to a window.
func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	jitterAmount := time.Duration(float64(d) * b.jitter * b.rng.Float64())
	return d + jitterAmount
}
