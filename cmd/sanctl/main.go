// Command sanctl manages SAN devices from the command line.
//
// Usage:
//
//	sanctl [flags] [uri ...]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-event-log string  Append CBOR event log to this file
//	-interactive       Enable interactive command mode
//
// Any positional URIs are hooked at startup with default drive numbers.
//
// Examples:
//
//	# Hook two ramdisks and enter the interactive shell
//	sanctl -interactive ram://disk0 ram://disk1
//
//	# Hook the drives named in a config file, recording events
//	sanctl -config drives.yaml -event-log session.sanlog
//
// Interactive Commands:
//
//	hook <uri> [drive]    - Hook a SAN target
//	unhook <drive>        - Unhook a drive
//	ls                    - List hooked drives
//	read <drive> <lba> <count>          - Read blocks (hex dump)
//	write <drive> <lba> <hex-bytes>     - Write blocks
//	boot [drive]          - Check bootability of a drive
//	describe              - Show the description table
//	discover              - Browse for advertised SAN targets
//	status                - Show registry status
//	quit                  - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanboot-protocol/sanboot-go/cmd/sanctl/interactive"
	"github.com/sanboot-protocol/sanboot-go/pkg/log"
	"github.com/sanboot-protocol/sanboot-go/pkg/retry"
	"github.com/sanboot-protocol/sanboot-go/pkg/san"
	_ "github.com/sanboot-protocol/sanboot-go/pkg/transport/ramdisk"
)

// Config holds the sanctl configuration.
type Config struct {
	ConfigFile  string
	LogLevel    string
	EventLog    string
	Interactive bool
}

// FileConfig is the YAML configuration file format.
type FileConfig struct {
	// LogLevel overrides the log level.
	LogLevel string `yaml:"log_level"`

	// EventLog is a CBOR event log file to append to.
	EventLog string `yaml:"event_log"`

	// CommandTimeout is the initial command timeout window.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// MaxTimeout is the widest command timeout window.
	MaxTimeout time.Duration `yaml:"max_timeout"`

	// Drives are hooked at startup.
	Drives []DriveConfig `yaml:"drives"`
}

// DriveConfig names one drive to hook at startup.
type DriveConfig struct {
	// URI is the target URI.
	URI string `yaml:"uri"`

	// Drive is the requested drive number ("0x80" or decimal); empty
	// selects the default for the media type.
	Drive string `yaml:"drive"`
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.EventLog, "event-log", "", "Append CBOR event log to this file")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	fileConfig, err := loadFileConfig(config.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sanctl: %v\n", err)
		os.Exit(1)
	}
	if config.LogLevel == "info" && fileConfig.LogLevel != "" {
		config.LogLevel = fileConfig.LogLevel
	}
	if config.EventLog == "" {
		config.EventLog = fileConfig.EventLog
	}

	setupLogging(config.LogLevel)

	logger, cleanup, err := buildEventLogger(config.EventLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sanctl: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	reg := san.NewRegistry(san.Config{
		Logger:   logger,
		NewTimer: timerFactory(fileConfig),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("shutting down")
		cancel()
	}()

	if err := hookStartupDrives(ctx, reg, fileConfig.Drives, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "sanctl: %v\n", err)
		reg.UnhookAll()
		os.Exit(1)
	}
	defer reg.UnhookAll()

	if config.Interactive {
		shell, err := interactive.New(reg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sanctl: %v\n", err)
			os.Exit(1)
		}
		shell.Run(ctx, cancel)
		return
	}

	if reg.Empty() {
		flag.Usage()
		os.Exit(1)
	}

	slog.Info("devices hooked", "count", len(reg.Devices()))
	<-ctx.Done()
}

// loadFileConfig reads the YAML configuration file, if any.
func loadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setupLogging configures the slog default logger.
func setupLogging(level string) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})))
}

// buildEventLogger assembles the device event logger: slog always, plus
// a CBOR file log when configured.
func buildEventLogger(path string) (log.Logger, func(), error) {
	slogger := log.NewSlogAdapter(slog.Default())
	if path == "" {
		return slogger, func() {}, nil
	}

	fileLogger, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	return log.NewMultiLogger(slogger, fileLogger), func() { _ = fileLogger.Close() }, nil
}

// timerFactory builds the per-device command timer constructor from the
// configured timeout windows.
func timerFactory(cfg FileConfig) func() *retry.Timer {
	if cfg.CommandTimeout <= 0 && cfg.MaxTimeout <= 0 {
		return retry.NewTimer
	}
	return func() *retry.Timer {
		return retry.NewTimerWithBackoff(retry.NewBackoffWithConfig(retry.BackoffConfig{
			Initial: cfg.CommandTimeout,
			Max:     cfg.MaxTimeout,
		}))
	}
}

// hookStartupDrives hooks the config-file drives and then any
// positional URIs.
func hookStartupDrives(ctx context.Context, reg *san.Registry, drives []DriveConfig, args []string) error {
	for _, dc := range drives {
		drive := san.DriveUnspecified
		if dc.Drive != "" {
			parsed, err := strconv.ParseUint(dc.Drive, 0, 32)
			if err != nil {
				return fmt.Errorf("invalid drive %q: %w", dc.Drive, err)
			}
			drive = uint32(parsed)
		}
		if err := hookOne(ctx, reg, dc.URI, drive); err != nil {
			return err
		}
	}
	for _, raw := range args {
		if err := hookOne(ctx, reg, raw, san.DriveUnspecified); err != nil {
			return err
		}
	}
	return nil
}

func hookOne(ctx context.Context, reg *san.Registry, raw string, drive uint32) error {
	uri, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URI %q: %w", raw, err)
	}
	assigned, err := reg.Hook(ctx, uri, drive)
	if err != nil {
		return fmt.Errorf("hook %s: %w", uri.Redacted(), err)
	}
	slog.Info("hooked", "uri", uri.Redacted(), "drive", fmt.Sprintf("%#02x", assigned))
	return nil
}
