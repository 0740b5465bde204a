// Package mock provides mock transport implementations for testing.
package mock

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sanboot-protocol/sanboot-go/pkg/block"
	"github.com/sanboot-protocol/sanboot-go/pkg/transport"
)

// BlockInterface is a mock transport.BlockInterface.
type BlockInterface struct {
	mock.Mock
}

func (m *BlockInterface) SubmitCapacity(tag uuid.UUID) (<-chan transport.Completion, error) {
	args := m.Called(tag)
	return completionChannel(args.Get(0)), args.Error(1)
}

func (m *BlockInterface) SubmitTransfer(tag uuid.UUID, req block.TransferRequest) (<-chan transport.Completion, error) {
	args := m.Called(tag, req)
	return completionChannel(args.Get(0)), args.Error(1)
}

func (m *BlockInterface) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CommandInterface is a mock transport.CommandInterface.
type CommandInterface struct {
	mock.Mock
}

func (m *CommandInterface) SubmitReset(tag uuid.UUID) (<-chan transport.Completion, error) {
	args := m.Called(tag)
	return completionChannel(args.Get(0)), args.Error(1)
}

func (m *CommandInterface) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Opener is a mock transport.Opener.
type Opener struct {
	mock.Mock
}

func (m *Opener) Scheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *Opener) Open(ctx context.Context, target *url.URL) (transport.CommandInterface, transport.BlockInterface, error) {
	args := m.Called(ctx, target)
	var command transport.CommandInterface
	if c := args.Get(0); c != nil {
		command = c.(transport.CommandInterface)
	}
	var blockIntf transport.BlockInterface
	if b := args.Get(1); b != nil {
		blockIntf = b.(transport.BlockInterface)
	}
	return command, blockIntf, args.Error(2)
}

// completionChannel coerces a mock return value to a completion channel,
// accepting both directions of the channel type.
func completionChannel(v any) <-chan transport.Completion {
	switch ch := v.(type) {
	case nil:
		return nil
	case <-chan transport.Completion:
		return ch
	case chan transport.Completion:
		return ch
	default:
		panic("mock: completion return is not a channel")
	}
}

// Completed returns a channel with a single delivered completion, as a
// backend that answers immediately would produce.
func Completed(c transport.Completion) chan transport.Completion {
	ch := make(chan transport.Completion, 1)
	ch <- c
	return ch
}

// ClosedChannel returns an already-closed completion channel, the
// cancellation signal of a closed interface.
func ClosedChannel() chan transport.Completion {
	ch := make(chan transport.Completion)
	close(ch)
	return ch
}

// Compile-time interface satisfaction checks.
var (
	_ transport.BlockInterface   = (*BlockInterface)(nil)
	_ transport.CommandInterface = (*CommandInterface)(nil)
	_ transport.Opener           = (*Opener)(nil)
)
