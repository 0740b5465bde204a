package retry

import (
	"errors"
	"testing"
	"time"
)

func shortTimer(window time.Duration) *Timer {
	return NewTimerWithBackoff(NewBackoffWithConfig(BackoffConfig{
		Initial:    window,
		Max:        window * 8,
		Multiplier: 2.0,
	}))
}

func TestTimer(t *testing.T) {
	t.Run("Expiry", func(t *testing.T) {
		tm := shortTimer(10 * time.Millisecond)

		expired, err := tm.Start()
		if err != nil {
			t.Fatalf("Start() = %v", err)
		}

		select {
		case <-expired:
		case <-time.After(time.Second):
			t.Fatal("timer did not expire")
		}

		if tm.Running() {
			t.Error("timer should not be running after expiry")
		}
		if tm.Expiries() != 1 {
			t.Errorf("Expiries() = %d, want 1", tm.Expiries())
		}
		// Window should have widened
		if tm.Window() != 20*time.Millisecond {
			t.Errorf("Window() = %v, want 20ms", tm.Window())
		}
	})

	t.Run("StopBeforeExpiry", func(t *testing.T) {
		tm := shortTimer(time.Hour)

		expired, err := tm.Start()
		if err != nil {
			t.Fatalf("Start() = %v", err)
		}
		if !tm.Running() {
			t.Error("timer should be running while armed")
		}
		if !tm.Stop() {
			t.Error("Stop() = false, want true")
		}

		select {
		case <-expired:
			t.Error("expiry channel fired after Stop")
		case <-time.After(20 * time.Millisecond):
		}

		// Window unchanged by a completed command
		if tm.Expiries() != 0 {
			t.Errorf("Expiries() = %d, want 0", tm.Expiries())
		}
	})

	t.Run("NoPipelining", func(t *testing.T) {
		tm := shortTimer(time.Hour)
		defer tm.Stop()

		if _, err := tm.Start(); err != nil {
			t.Fatalf("Start() = %v", err)
		}
		if _, err := tm.Start(); !errors.Is(err, ErrTimerRunning) {
			t.Errorf("second Start() = %v, want ErrTimerRunning", err)
		}
	})

	t.Run("OnExpireCallback", func(t *testing.T) {
		tm := shortTimer(5 * time.Millisecond)

		fired := make(chan struct{})
		tm.OnExpire(func() { close(fired) })

		expired, err := tm.Start()
		if err != nil {
			t.Fatalf("Start() = %v", err)
		}

		<-expired
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("OnExpire callback not invoked")
		}
	})

	t.Run("ResetRestoresWindow", func(t *testing.T) {
		tm := shortTimer(time.Millisecond)
		expired, _ := tm.Start()
		<-expired

		tm.Reset()
		if tm.Window() != time.Millisecond {
			t.Errorf("Window() = %v after Reset, want 1ms", tm.Window())
		}
	})
}
