// Package interactive provides the interactive command-line interface
// for sanctl.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/sanboot-protocol/sanboot-go/pkg/describe"
	"github.com/sanboot-protocol/sanboot-go/pkg/discovery"
	"github.com/sanboot-protocol/sanboot-go/pkg/san"
)

// Shell handles interactive mode for sanctl.
type Shell struct {
	reg     *san.Registry
	browser discovery.Browser
	rl      *readline.Instance
}

// New creates a new interactive shell.
func New(reg *san.Registry) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "san> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		reg:     reg,
		browser: discovery.NewMDNSBrowser(discovery.BrowserConfig{BrowseTimeout: 5 * time.Second}),
		rl:      rl,
	}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "hook", "h":
			s.cmdHook(ctx, args)

		case "unhook", "u":
			s.cmdUnhook(args)

		case "ls", "list", "drives":
			s.cmdList()

		case "read", "r":
			s.cmdRead(ctx, args)

		case "write", "w":
			s.cmdWrite(ctx, args)

		case "boot", "b":
			s.cmdBoot(ctx, args)

		case "describe", "d":
			s.cmdDescribe()

		case "discover":
			s.cmdDiscover(ctx)

		case "status":
			s.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
SAN Control Commands:
  hook <uri> [drive]              - Hook a SAN target (drive e.g. 0x80)
  unhook <drive>                  - Unhook a drive
  ls                              - List hooked drives
  read <drive> <lba> <count>      - Read blocks and hex dump them
  write <drive> <lba> <hex-bytes> - Write blocks (zero padded)
  boot [drive]                    - Check bootability of a drive
  describe                        - Show the description table
  discover                        - Browse for advertised SAN targets
  status                          - Show registry status
  quit                            - Exit`)
}

// parseDrive accepts "0x80" or decimal drive numbers.
func parseDrive(arg string) (uint32, error) {
	drive, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid drive %q", arg)
	}
	return uint32(drive), nil
}

// findDrive resolves a drive argument to a device.
func (s *Shell) findDrive(arg string) *san.Device {
	drive, err := parseDrive(arg)
	if err != nil {
		fmt.Fprintln(s.rl.Stdout(), err)
		return nil
	}
	d := s.reg.Find(drive)
	if d == nil {
		fmt.Fprintf(s.rl.Stdout(), "No device on drive %#02x\n", drive)
	}
	return d
}

func (s *Shell) cmdHook(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: hook <uri> [drive]")
		return
	}
	uri, err := url.Parse(args[0])
	if err != nil || uri.Scheme == "" {
		fmt.Fprintf(s.rl.Stdout(), "Invalid URI %q\n", args[0])
		return
	}

	drive := san.DriveUnspecified
	if len(args) > 1 {
		drive, err = parseDrive(args[1])
		if err != nil {
			fmt.Fprintln(s.rl.Stdout(), err)
			return
		}
	}

	assigned, err := s.reg.Hook(ctx, uri, drive)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Hook failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Hooked %s as drive %#02x\n", uri.Redacted(), assigned)
}

func (s *Shell) cmdUnhook(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: unhook <drive>")
		return
	}
	drive, err := parseDrive(args[0])
	if err != nil {
		fmt.Fprintln(s.rl.Stdout(), err)
		return
	}
	if !s.reg.Exists(drive) {
		fmt.Fprintf(s.rl.Stdout(), "No device on drive %#02x\n", drive)
		return
	}
	s.reg.Unhook(drive)
	fmt.Fprintf(s.rl.Stdout(), "Unhooked drive %#02x\n", drive)
}

func (s *Shell) cmdList() {
	devices := s.reg.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No drives hooked")
		return
	}
	for _, d := range devices {
		media := "disk"
		if d.Optical() {
			media = "optical"
		}
		state := "ready"
		if d.NeedsReopen() {
			state = "needs reopen"
		}
		fmt.Fprintf(s.rl.Stdout(), "  %#02x  %-40s  %d x %d bytes (%s, %s)\n",
			d.Drive(), d.URI().Redacted(), d.Blocks(), d.BlockSize(), media, state)
	}
}

func (s *Shell) cmdRead(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: read <drive> <lba> <count>")
		return
	}
	d := s.findDrive(args[0])
	if d == nil {
		return
	}
	lba, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid LBA %q\n", args[1])
		return
	}
	count, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil || count == 0 {
		fmt.Fprintf(s.rl.Stdout(), "Invalid count %q\n", args[2])
		return
	}

	buf := make([]byte, uint64(count)*d.BlockSize())
	if err := d.ReadBlocks(ctx, lba, uint32(count), buf); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Read failed: %v\n", err)
		return
	}
	fmt.Fprint(s.rl.Stdout(), hex.Dump(buf))
}

func (s *Shell) cmdWrite(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: write <drive> <lba> <hex-bytes>")
		return
	}
	d := s.findDrive(args[0])
	if d == nil {
		return
	}
	lba, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid LBA %q\n", args[1])
		return
	}
	data, err := hex.DecodeString(args[2])
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid hex data: %v\n", err)
		return
	}
	if len(data) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No data to write")
		return
	}

	// Zero-pad to whole blocks.
	blockSize := d.BlockSize()
	count := (uint64(len(data)) + blockSize - 1) / blockSize
	buf := make([]byte, count*blockSize)
	copy(buf, data)

	if err := d.WriteBlocks(ctx, lba, uint32(count), buf); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Wrote %d block(s) at LBA %d\n", count, lba)
}

func (s *Shell) cmdBoot(ctx context.Context, args []string) {
	drive := san.DriveUnspecified
	if len(args) > 0 {
		parsed, err := parseDrive(args[0])
		if err != nil {
			fmt.Fprintln(s.rl.Stdout(), err)
			return
		}
		drive = parsed
	}

	err := s.reg.Boot(ctx, drive, func(ctx context.Context, d *san.Device) error {
		fmt.Fprintf(s.rl.Stdout(), "Drive %#02x (%s) is bootable\n", d.Drive(), d.URI().Redacted())
		return nil
	})
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Boot check failed: %v\n", err)
	}
}

func (s *Shell) cmdDescribe() {
	table := describe.Build(s.reg)
	data, err := describe.Encode(table)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Encode failed: %v\n", err)
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "Description table v%d, boot drive %#02x, %d bytes CBOR\n",
		table.Version, table.BootDrive, len(data))
	for _, entry := range table.Entries {
		fmt.Fprintf(s.rl.Stdout(), "  %#02x  %s\n", entry.Drive, entry.URI)
		fmt.Fprintf(s.rl.Stdout(), "        raw %d x %d, logical %d x %d, optical=%v, id=%s\n",
			entry.RawBlocks, entry.RawBlockSize,
			entry.LogicalBlocks, entry.LogicalBlockSize,
			entry.Optical, entry.ID)
	}
}

func (s *Shell) cmdDiscover(ctx context.Context) {
	fmt.Fprintln(s.rl.Stdout(), "Browsing for SAN targets...")
	targets, err := s.browser.FindAll(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Discovery failed: %v\n", err)
		return
	}
	if len(targets) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No targets found")
		return
	}
	for _, target := range targets {
		uri, err := target.URI()
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "  %-30s  (unusable: %v)\n", target.InstanceName, err)
			continue
		}
		fmt.Fprintf(s.rl.Stdout(), "  %-30s  %s\n", target.InstanceName, uri)
	}
}

func (s *Shell) cmdStatus() {
	devices := s.reg.Devices()
	fmt.Fprintf(s.rl.Stdout(), "%d drive(s) hooked\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(s.rl.Stdout(), "  %#02x  refs=%d  blockStatus=%v  commandStatus=%v\n",
			d.Drive(), d.Refs(), d.BlockStatus(), d.CommandStatus())
	}
}
