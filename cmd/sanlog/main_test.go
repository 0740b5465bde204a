package main

import (
	"strings"
	"testing"
	"time"

	"github.com/sanboot-protocol/sanboot-go/pkg/log"
)

func TestBuildFilter(t *testing.T) {
	filter, err := buildFilter(flags{drive: "0x80", layer: "block", category: "transfer"})
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	if filter.Drive == nil || *filter.Drive != 0x80 {
		t.Errorf("drive filter = %v", filter.Drive)
	}
	if filter.Layer == nil || *filter.Layer != log.LayerBlock {
		t.Errorf("layer filter = %v", filter.Layer)
	}
	if filter.Category == nil || *filter.Category != log.CategoryTransfer {
		t.Errorf("category filter = %v", filter.Category)
	}

	if _, err := buildFilter(flags{drive: "not-a-number"}); err == nil {
		t.Error("expected error for bad drive")
	}
	if _, err := buildFilter(flags{layer: "bogus"}); err == nil {
		t.Error("expected error for bad layer")
	}
	if _, err := buildFilter(flags{category: "bogus"}); err == nil {
		t.Error("expected error for bad category")
	}
}

func TestFormatEvent(t *testing.T) {
	elapsed := 3 * time.Millisecond
	event := log.Event{
		Timestamp: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		Drive:     0x80,
		Layer:     log.LayerBlock,
		Category:  log.CategoryTransfer,
		Transfer: &log.TransferEvent{
			LBA:      3,
			Count:    1,
			RawLBA:   12,
			RawCount: 4,
			Write:    true,
			Duration: &elapsed,
			Failed:   true,
		},
	}

	line := formatEvent(event)
	for _, want := range []string{"BLOCK", "TRANSFER", "drive=0x80", "write", "lba=3", "raw=[12,4]", "FAILED"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}
