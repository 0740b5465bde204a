package discovery

import (
	"context"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Browser browses DNS-SD for advertised SAN targets.
type Browser interface {
	// Browse searches for targets of one protocol family. Discovered
	// targets are delivered on the returned channel, which is closed
	// when the context is cancelled.
	Browse(ctx context.Context, kind TargetKind) (<-chan *TargetService, error)

	// BrowseAll searches every known protocol family at once.
	BrowseAll(ctx context.Context) (<-chan *TargetService, error)

	// FindAll collects every target discovered within the browse
	// timeout.
	FindAll(ctx context.Context) ([]*TargetService, error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds one-shot operations like FindAll.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface selects a network interface by name. Empty means all
	// interfaces.
	Interface string
}

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &MDNSBrowser{config: config}
}

// Browse searches for targets of one protocol family. Entries are
// aggregated by instance name; addresses seen on multiple interfaces
// are merged into a single service, and a service is dropped once all
// of its addresses have been withdrawn.
func (b *MDNSBrowser) Browse(ctx context.Context, kind TargetKind) (<-chan *TargetService, error) {
	out := make(chan *TargetService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	opts := b.browserOptions()

	go func() {
		defer close(out)

		services := make(map[string]*TargetService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToTarget(entry, kind)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(services, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, kind.serviceType(), Domain, entries, removed, opts...)
	}()

	return out, nil
}

// BrowseAll fans every protocol family into one channel.
func (b *MDNSBrowser) BrowseAll(ctx context.Context) (<-chan *TargetService, error) {
	out := make(chan *TargetService)
	kinds := []TargetKind{KindISCSI, KindNBD, KindHTTP}

	done := make(chan struct{}, len(kinds))
	for _, kind := range kinds {
		results, err := b.Browse(ctx, kind)
		if err != nil {
			return nil, err
		}
		go func() {
			for svc := range results {
				select {
				case out <- svc:
				case <-ctx.Done():
				}
			}
			done <- struct{}{}
		}()
	}

	go func() {
		for range kinds {
			<-done
		}
		close(out)
	}()

	return out, nil
}

// FindAll collects every target discovered within the browse timeout.
func (b *MDNSBrowser) FindAll(ctx context.Context) ([]*TargetService, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	results, err := b.BrowseAll(ctx)
	if err != nil {
		return nil, err
	}

	var found []*TargetService
	for svc := range results {
		found = append(found, svc)
	}
	return found, nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToTarget converts a zeroconf entry to a TargetService.
func entryToTarget(entry *zeroconf.ServiceEntry, kind TargetKind) *TargetService {
	if entry == nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &TargetService{
		InstanceName: entry.Instance,
		Kind:         kind,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		TXT:          parseTXT(entry.Text),
	}
}

// Compile-time interface satisfaction check.
var _ Browser = (*MDNSBrowser)(nil)
