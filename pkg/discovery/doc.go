// Package discovery browses DNS-SD for advertised SAN targets.
//
// Storage targets that announce themselves over mDNS (iSCSI portals,
// NBD exports, HTTP block stores) are surfaced as TargetService values
// whose URI method yields an address suitable for hooking. This layer
// only browses; targets advertise themselves.
package discovery
