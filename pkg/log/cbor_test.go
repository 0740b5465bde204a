package log

import (
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	dur := 42 * time.Millisecond
	original := Event{
		Timestamp: ts,
		Drive:     0x80,
		DeviceID:  "abc12345-def6-7890-abcd-ef1234567890",
		URI:       "iscsi://target.example.com:3260/iqn.2026-03.com.example:disk0",
		Layer:     LayerBlock,
		Category:  CategoryTransfer,
		Transfer: &TransferEvent{
			LBA:      16,
			Count:    4,
			RawLBA:   64,
			RawCount: 16,
			Write:    true,
			Duration: &dur,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent() = %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() = %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.Drive != original.Drive {
		t.Errorf("Drive = %#x, want %#x", decoded.Drive, original.Drive)
	}
	if decoded.DeviceID != original.DeviceID {
		t.Errorf("DeviceID = %q, want %q", decoded.DeviceID, original.DeviceID)
	}
	if decoded.Layer != original.Layer || decoded.Category != original.Category {
		t.Errorf("Layer/Category = %v/%v, want %v/%v",
			decoded.Layer, decoded.Category, original.Layer, original.Category)
	}
	if decoded.Transfer == nil {
		t.Fatal("Transfer payload missing after round trip")
	}
	if *decoded.Transfer.Duration != dur {
		t.Errorf("Duration = %v, want %v", *decoded.Transfer.Duration, dur)
	}
	if decoded.Transfer.RawLBA != 64 || decoded.Transfer.RawCount != 16 {
		t.Errorf("raw range = %d+%d, want 64+16",
			decoded.Transfer.RawLBA, decoded.Transfer.RawCount)
	}
}

func TestEventCBOROmitsEmptyPayloads(t *testing.T) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Layer:     LayerCore,
		Category:  CategoryLifecycle,
		Lifecycle: &LifecycleEvent{Action: ActionHooked},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent() = %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() = %v", err)
	}

	if decoded.Transfer != nil || decoded.Reopen != nil || decoded.Command != nil || decoded.Error != nil {
		t.Error("unset payloads should stay nil after round trip")
	}
	if decoded.Lifecycle == nil || decoded.Lifecycle.Action != ActionHooked {
		t.Errorf("Lifecycle = %+v, want ActionHooked", decoded.Lifecycle)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("DecodeEvent(garbage) = nil, want error")
	}
}
