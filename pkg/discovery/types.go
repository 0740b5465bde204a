package discovery

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNS-SD service types browsed for SAN targets.
const (
	// ServiceTypeISCSI is the service type of advertised iSCSI portals.
	ServiceTypeISCSI = "_iscsi._tcp"

	// ServiceTypeNBD is the service type of advertised NBD exports.
	ServiceTypeNBD = "_nbd._tcp"

	// ServiceTypeHTTP is the service type of advertised HTTP block
	// stores.
	ServiceTypeHTTP = "_http._tcp"

	// Domain is the DNS-SD browse domain.
	Domain = "local."

	// BrowseTimeout is the default timeout for one-shot browse
	// operations.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys recognized on SAN target advertisements.
const (
	// TXTTarget names the iSCSI target (IQN).
	TXTTarget = "target"

	// TXTExport names the NBD export.
	TXTExport = "export"

	// TXTPath is the resource path of an HTTP block store.
	TXTPath = "path"
)

// TargetKind identifies the protocol family of a discovered target.
type TargetKind int

const (
	// KindISCSI is an iSCSI portal.
	KindISCSI TargetKind = iota

	// KindNBD is an NBD export.
	KindNBD

	// KindHTTP is an HTTP block store.
	KindHTTP
)

// String returns the URI scheme of the target kind.
func (k TargetKind) String() string {
	switch k {
	case KindISCSI:
		return "iscsi"
	case KindNBD:
		return "nbd"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// serviceType returns the DNS-SD service type browsed for the kind.
func (k TargetKind) serviceType() string {
	switch k {
	case KindISCSI:
		return ServiceTypeISCSI
	case KindNBD:
		return ServiceTypeNBD
	case KindHTTP:
		return ServiceTypeHTTP
	default:
		return ""
	}
}

// TargetService is a SAN target discovered via DNS-SD.
type TargetService struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Kind is the protocol family.
	Kind TargetKind

	// Host is the advertised hostname.
	Host string

	// Port is the advertised port.
	Port uint16

	// Addresses holds the resolved IPv4/IPv6 addresses as strings.
	Addresses []string

	// TXT holds the parsed TXT records.
	TXT map[string]string
}

// URI builds a hookable URI for the target: the protocol scheme, the
// best available address, and the protocol-specific resource path from
// the TXT records.
func (s *TargetService) URI() (*url.URL, error) {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	if host == "" {
		return nil, fmt.Errorf("discovered target %q has no address", s.InstanceName)
	}

	u := &url.URL{
		Scheme: s.Kind.String(),
		Host:   net.JoinHostPort(strings.TrimSuffix(host, "."), fmt.Sprint(s.Port)),
	}

	switch s.Kind {
	case KindISCSI:
		if target := s.TXT[TXTTarget]; target != "" {
			u.Path = "/" + target
		}
	case KindNBD:
		if export := s.TXT[TXTExport]; export != "" {
			u.Path = "/" + export
		}
	case KindHTTP:
		if path := s.TXT[TXTPath]; path != "" {
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			u.Path = path
		}
	}

	return u, nil
}

// parseTXT splits raw TXT strings into a key/value map. Keys are
// lowercased; a record without '=' becomes a key with an empty value.
func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))
	for _, record := range records {
		if record == "" {
			continue
		}
		key, value, _ := strings.Cut(record, "=")
		txt[strings.ToLower(key)] = value
	}
	return txt
}

// mergeAddresses appends the addresses from extra that are not already
// present.
func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, addr := range existing {
		seen[addr] = struct{}{}
	}
	for _, addr := range extra {
		if _, ok := seen[addr]; !ok {
			existing = append(existing, addr)
			seen[addr] = struct{}{}
		}
	}
	return existing
}
