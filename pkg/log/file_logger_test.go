package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "san.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() = %v", err)
	}

	events := []Event{
		{
			Timestamp: time.Now().UTC(),
			Drive:     0x80,
			Layer:     LayerCore,
			Category:  CategoryLifecycle,
			Lifecycle: &LifecycleEvent{Action: ActionHooked, Refs: 2},
		},
		{
			Timestamp: time.Now().UTC(),
			Drive:     0x80,
			Layer:     LayerBlock,
			Category:  CategoryTransfer,
			Transfer:  &TransferEvent{LBA: 0, Count: 1, RawLBA: 0, RawCount: 1},
		},
		{
			Timestamp: time.Now().UTC(),
			Drive:     0xe0,
			Layer:     LayerCore,
			Category:  CategoryReopen,
			Reopen:    &ReopenEvent{Failed: true},
		},
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	// Logging after close is silently ignored.
	logger.Log(events[0])
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() = %v", err)
	}
	defer reader.Close()

	var count int
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() = %v", err)
		}
		if event.Drive != events[count].Drive {
			t.Errorf("event %d: Drive = %#x, want %#x", count, event.Drive, events[count].Drive)
		}
		count++
	}
	if count != len(events) {
		t.Errorf("read %d events, want %d", count, len(events))
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "san.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() = %v", err)
	}
	for drive := uint32(0x80); drive < 0x84; drive++ {
		logger.Log(Event{
			Timestamp: time.Now().UTC(),
			Drive:     drive,
			Layer:     LayerCore,
			Category:  CategoryLifecycle,
			Lifecycle: &LifecycleEvent{Action: ActionHooked},
		})
	}
	logger.Close()

	want := uint32(0x82)
	reader, err := NewFilteredReader(path, Filter{Drive: &want})
	if err != nil {
		t.Fatalf("NewFilteredReader() = %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next() = %v", err)
	}
	if event.Drive != want {
		t.Errorf("Drive = %#x, want %#x", event.Drive, want)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("Next() after last match = %v, want io.EOF", err)
	}
}
