// Command sanlog views CBOR SAN event log files.
//
// Log files are created by sanctl with the -event-log flag, or by any
// application wiring a FileLogger into its registry.
//
// Usage:
//
//	sanlog [flags] <file.sanlog>
//
// Flags:
//
//	-drive string     Filter by drive number (e.g. 0x80)
//	-device string    Filter by device ID
//	-layer string     Filter by layer: transport, block, core
//	-category string  Filter by category: lifecycle, transfer, reopen, command, error
//	-stats            Show event counts instead of events
//
// Examples:
//
//	# View all events
//	sanlog session.sanlog
//
//	# View reopen events for one drive
//	sanlog -drive 0x80 -category reopen session.sanlog
//
//	# Count events per category
//	sanlog -stats session.sanlog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sanboot-protocol/sanboot-go/pkg/log"
)

type flags struct {
	drive    string
	device   string
	layer    string
	category string
	stats    bool
}

func main() {
	var f flags
	flag.StringVar(&f.drive, "drive", "", "Filter by drive number (e.g. 0x80)")
	flag.StringVar(&f.device, "device", "", "Filter by device ID")
	flag.StringVar(&f.layer, "layer", "", "Filter by layer: transport, block, core")
	flag.StringVar(&f.category, "category", "", "Filter by category: lifecycle, transfer, reopen, command, error")
	flag.BoolVar(&f.stats, "stats", false, "Show event counts instead of events")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: sanlog [flags] <file.sanlog>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	filter, err := buildFilter(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sanlog: %v\n", err)
		os.Exit(1)
	}

	reader, err := log.NewFilteredReader(flag.Arg(0), filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sanlog: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	if f.stats {
		err = runStats(reader)
	} else {
		err = runView(reader)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sanlog: %v\n", err)
		os.Exit(1)
	}
}

// buildFilter translates flags into a log filter.
func buildFilter(f flags) (log.Filter, error) {
	var filter log.Filter

	if f.drive != "" {
		drive, err := strconv.ParseUint(f.drive, 0, 32)
		if err != nil {
			return filter, fmt.Errorf("invalid drive %q", f.drive)
		}
		d := uint32(drive)
		filter.Drive = &d
	}
	filter.DeviceID = f.device

	if f.layer != "" {
		layer, err := parseLayer(f.layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &layer
	}
	if f.category != "" {
		category, err := parseCategory(f.category)
		if err != nil {
			return filter, err
		}
		filter.Category = &category
	}
	return filter, nil
}

func parseLayer(name string) (log.Layer, error) {
	switch strings.ToLower(name) {
	case "transport":
		return log.LayerTransport, nil
	case "block":
		return log.LayerBlock, nil
	case "core":
		return log.LayerCore, nil
	default:
		return 0, fmt.Errorf("unknown layer %q", name)
	}
}

func parseCategory(name string) (log.Category, error) {
	switch strings.ToLower(name) {
	case "lifecycle":
		return log.CategoryLifecycle, nil
	case "transfer":
		return log.CategoryTransfer, nil
	case "reopen":
		return log.CategoryReopen, nil
	case "command":
		return log.CategoryCommand, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category %q", name)
	}
}

// runView prints each event as one line.
func runView(reader *log.Reader) error {
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(formatEvent(event))
	}
}

// runStats counts events per category.
func runStats(reader *log.Reader) error {
	counts := make(map[log.Category]int)
	total := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		counts[event.Category]++
		total++
	}

	fmt.Printf("%d event(s)\n", total)
	for _, category := range []log.Category{
		log.CategoryLifecycle, log.CategoryTransfer, log.CategoryReopen,
		log.CategoryCommand, log.CategoryError,
	} {
		if counts[category] > 0 {
			fmt.Printf("  %-10s %d\n", category, counts[category])
		}
	}
	return nil
}

// formatEvent renders one event as a human-readable line.
func formatEvent(event log.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %-9s %-9s",
		event.Timestamp.Format("15:04:05.000000"), event.Layer, event.Category)
	if event.Drive != 0 {
		fmt.Fprintf(&b, "  drive=%#02x", event.Drive)
	}

	switch {
	case event.Lifecycle != nil:
		fmt.Fprintf(&b, "  %s refs=%d", event.Lifecycle.Action, event.Lifecycle.Refs)

	case event.Transfer != nil:
		op := "read"
		if event.Transfer.Write {
			op = "write"
		}
		fmt.Fprintf(&b, "  %s lba=%d count=%d raw=[%d,%d]",
			op, event.Transfer.LBA, event.Transfer.Count,
			event.Transfer.RawLBA, event.Transfer.RawCount)
		if event.Transfer.Failed {
			b.WriteString(" FAILED")
		}
		if event.Transfer.Duration != nil {
			fmt.Fprintf(&b, " in %v", *event.Transfer.Duration)
		}

	case event.Reopen != nil:
		if event.Reopen.Failed {
			b.WriteString("  FAILED")
		} else {
			fmt.Fprintf(&b, "  %d x %d optical=%v shift=%d",
				event.Reopen.Blocks, event.Reopen.BlockSize,
				event.Reopen.Optical, event.Reopen.Shift)
		}
		if event.Reopen.Duration != nil {
			fmt.Fprintf(&b, " in %v", *event.Reopen.Duration)
		}

	case event.Command != nil:
		fmt.Fprintf(&b, "  %s window=%v", event.Command.Kind, event.Command.Window)
		if event.Command.Expired {
			b.WriteString(" EXPIRED")
		}
		if event.Command.Duration != nil {
			fmt.Fprintf(&b, " in %v", *event.Command.Duration)
		}

	case event.Error != nil:
		fmt.Fprintf(&b, "  [%s] %s", event.Error.Context, event.Error.Message)
	}

	if event.URI != "" {
		fmt.Fprintf(&b, "  %s", event.URI)
	}
	return b.String()
}
