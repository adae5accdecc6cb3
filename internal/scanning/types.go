// Package scanning provides the scan invocation layer for netsweep.
// It contains the scan category and target model, engine command
// construction, and the executor that runs the external scan engine and
// interprets its structured output.
package scanning

import (
	"fmt"
	"net/netip"
	"time"
)

// Category identifies the kind of scan being performed. The string values
// are stable and travel with every report, so downstream consumers can
// dispatch on them.
type Category string

const (
	CategoryARPDiscovery       Category = "arp-discovery"
	CategoryLinkLocalDiscovery Category = "ipv6-link-local-discovery"
	CategoryProtocolDetection  Category = "ip-protocol-detection"
	CategoryPortScan           Category = "port-scan"
	CategoryServiceDiscovery   Category = "service-discovery"
	CategoryNDDiscovery        Category = "nd-discovery"
)

// String returns the wire value of the category.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether c is one of the closed set of scan categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryARPDiscovery, CategoryLinkLocalDiscovery, CategoryProtocolDetection,
		CategoryPortScan, CategoryServiceDiscovery, CategoryNDDiscovery:
		return true
	}
	return false
}

// TargetKind distinguishes the three shapes a scan target can take.
type TargetKind int

const (
	// TargetNone marks an untargeted scan such as link-local multicast
	// discovery, where the engine derives its own targets.
	TargetNone TargetKind = iota
	// TargetAddress is a single host address.
	TargetAddress
	// TargetNetwork is a network prefix.
	TargetNetwork
)

// Target is the tagged union of untargeted, single-address, and
// network-prefix scan targets. The zero value is the untargeted form.
type Target struct {
	kind   TargetKind
	addr   netip.Addr
	prefix netip.Prefix
}

// NoTarget returns the untargeted form.
func NoTarget() Target {
	return Target{kind: TargetNone}
}

// AddressTarget returns a single-address target.
func AddressTarget(addr netip.Addr) Target {
	return Target{kind: TargetAddress, addr: addr}
}

// NetworkTarget returns a network-prefix target. The prefix is masked so
// stray host bits never leak into the engine invocation.
func NetworkTarget(prefix netip.Prefix) Target {
	return Target{kind: TargetNetwork, prefix: prefix.Masked()}
}

// ParseTarget parses a bare address or CIDR prefix into a Target.
func ParseTarget(s string) (Target, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return NetworkTarget(prefix), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Target{}, fmt.Errorf("target %q is neither an address nor a prefix", s)
	}
	return AddressTarget(addr), nil
}

// Kind returns which member of the union is set.
func (t Target) Kind() TargetKind {
	return t.kind
}

// IsNone reports whether the scan is untargeted.
func (t Target) IsNone() bool {
	return t.kind == TargetNone
}

// Addr returns the address of a single-address target.
func (t Target) Addr() netip.Addr {
	return t.addr
}

// Prefix returns the prefix of a network target.
func (t Target) Prefix() netip.Prefix {
	return t.prefix
}

// IsIPv6 reports whether the target belongs to the IPv6 family.
// Untargeted scans report false; the link-local builder hardcodes IPv6.
func (t Target) IsIPv6() bool {
	switch t.kind {
	case TargetAddress:
		return t.addr.Is6() && !t.addr.Is4In6()
	case TargetNetwork:
		return t.prefix.Addr().Is6() && !t.prefix.Addr().Is4In6()
	}
	return false
}

// IsLinkLocal reports whether the target is a link-local unicast address
// or prefix, which must be scanned bound to a specific interface.
func (t Target) IsLinkLocal() bool {
	switch t.kind {
	case TargetAddress:
		return t.addr.IsLinkLocalUnicast()
	case TargetNetwork:
		return t.prefix.Addr().IsLinkLocalUnicast()
	}
	return false
}

// EngineArg returns the compressed form handed to the scan engine on the
// command line: a bare address for single-address targets, CIDR form for
// network targets, and the empty string when untargeted.
func (t Target) EngineArg() string {
	switch t.kind {
	case TargetAddress:
		return t.addr.String()
	case TargetNetwork:
		return t.prefix.String()
	}
	return ""
}

// CIDR returns the canonical compressed prefix form used in emitted
// results. A single address is normalized to a /32 or /128 prefix.
// Untargeted scans have no CIDR form and return the empty string.
func (t Target) CIDR() string {
	switch t.kind {
	case TargetAddress:
		return netip.PrefixFrom(t.addr, t.addr.BitLen()).String()
	case TargetNetwork:
		return t.prefix.String()
	}
	return ""
}

// String implements fmt.Stringer for logging.
func (t Target) String() string {
	if t.IsNone() {
		return "(untargeted)"
	}
	return t.EngineArg()
}

// DiscoveredHost pairs a discovered address with the interface it was
// found on. Interface is set only for hosts found during interface-bound
// link-local discovery; later in-depth scans of link-local targets must
// be re-bound to the same interface.
type DiscoveredHost struct {
	Addr      netip.Addr
	Interface string
}

// HostStats summarizes the engine's own host accounting for a scan.
type HostStats struct {
	Up    int
	Down  int
	Total int
}

// Result is the outcome of one scan engine invocation. Target is the
// canonicalized CIDR form of the scan's effective target and is empty
// exactly when the scan was untargeted.
type Result struct {
	Category  Category
	Target    string
	Hosts     []netip.Addr
	Stats     HostStats
	StartTime time.Time
	Duration  time.Duration
}

// Discovered converts the result's host list into DiscoveredHost entries
// tagged with the given originating interface (empty for network scans).
func (r *Result) Discovered(iface string) []DiscoveredHost {
	hosts := make([]DiscoveredHost, 0, len(r.Hosts))
	for _, addr := range r.Hosts {
		hosts = append(hosts, DiscoveredHost{Addr: addr, Interface: iface})
	}
	return hosts
}
