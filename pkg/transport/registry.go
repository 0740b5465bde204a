package transport

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Schemes maps URI schemes to backend openers.
type Schemes struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

// NewSchemes creates an empty scheme registry.
func NewSchemes() *Schemes {
	return &Schemes{openers: make(map[string]Opener)}
}

// Register adds a backend. Registering a scheme twice replaces the
// earlier backend; schemes are case-insensitive.
func (s *Schemes) Register(opener Opener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openers[strings.ToLower(opener.Scheme())] = opener
}

// Lookup returns the backend registered for a scheme.
func (s *Schemes) Lookup(scheme string) (Opener, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opener, ok := s.openers[strings.ToLower(scheme)]
	return opener, ok
}

// List returns the registered schemes, sorted.
func (s *Schemes) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schemes := make([]string, 0, len(s.openers))
	for scheme := range s.openers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Open selects the backend for the URI scheme and opens an interface
// pair against the target.
func (s *Schemes) Open(ctx context.Context, target *url.URL) (CommandInterface, BlockInterface, error) {
	opener, ok := s.Lookup(target.Scheme)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, target.Scheme)
	}

	command, blockIntf, err := opener.Open(ctx, target)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, target.Redacted(), err)
	}
	return command, blockIntf, nil
}

// DefaultSchemes is the process-wide scheme registry. Backends register
// themselves here from init functions.
var DefaultSchemes = NewSchemes()

// Register adds a backend to the default registry.
func Register(opener Opener) {
	DefaultSchemes.Register(opener)
}

// Open opens an interface pair through the default registry.
func Open(ctx context.Context, target *url.URL) (CommandInterface, BlockInterface, error) {
	return DefaultSchemes.Open(ctx, target)
}
