package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes SAN events to an slog.Logger.
// Useful for development when you want to see device events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Drive != 0 {
		attrs = append(attrs, slog.String("drive", driveString(event.Drive)))
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.URI != "" {
		attrs = append(attrs, slog.String("uri", event.URI))
	}

	// Add type-specific attributes
	switch {
	case event.Lifecycle != nil:
		attrs = append(attrs,
			slog.String("action", event.Lifecycle.Action.String()),
		)
		if event.Lifecycle.Refs != 0 {
			attrs = append(attrs, slog.Int("refs", event.Lifecycle.Refs))
		}
	case event.Transfer != nil:
		attrs = append(attrs,
			slog.Uint64("lba", event.Transfer.LBA),
			slog.Uint64("count", uint64(event.Transfer.Count)),
			slog.Uint64("raw_lba", event.Transfer.RawLBA),
			slog.Uint64("raw_count", uint64(event.Transfer.RawCount)),
			slog.Bool("write", event.Transfer.Write),
			slog.Bool("failed", event.Transfer.Failed),
		)
		if event.Transfer.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Transfer.Duration))
		}
	case event.Reopen != nil:
		attrs = append(attrs, slog.Bool("failed", event.Reopen.Failed))
		if !event.Reopen.Failed {
			attrs = append(attrs,
				slog.Uint64("blocks", event.Reopen.Blocks),
				slog.Uint64("blksize", uint64(event.Reopen.BlockSize)),
				slog.Bool("optical", event.Reopen.Optical),
				slog.Uint64("shift", uint64(event.Reopen.Shift)),
			)
		}
		if event.Reopen.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Reopen.Duration))
		}
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("kind", event.Command.Kind.String()),
			slog.Bool("expired", event.Command.Expired),
		)
		if event.Command.Tag != "" {
			attrs = append(attrs, slog.String("tag", event.Command.Tag))
		}
		if event.Command.Window != 0 {
			attrs = append(attrs, slog.Duration("window", event.Command.Window))
		}
		if event.Command.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Command.Duration))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "san", attrs...)
}

// driveString formats a drive number in the conventional hex form.
func driveString(drive uint32) string {
	return fmt.Sprintf("%#02x", drive)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
