package scanning

import (
	"fmt"

	"github.com/netsweep/netsweep/internal/errors"
)

// Engine flag vocabulary. The flag strings are part of the engine's CLI
// contract and must not drift: downstream parsing of emitted reports
// depends on what each category actually ran.
const (
	flagIPv6          = "-6"
	flagResolveAlways = "-R"
	flagPingSweep     = "-sn"
	flagARPProbe      = "-PR"
	flagInterface     = "-e"
	flagProtocolScan  = "-sO"
	flagSYNScan       = "-sS"
	flagAggressive    = "-A"
	flagTimingT4      = "-T4"

	multicastTargetsScript = "--script=targets-ipv6-multicast-*"
	newTargetsScriptArg    = "--script-args=newtargets"
)

// BuildCommand maps (category, target, interface) to the argument list for
// the scan engine. Construction is pure: the same inputs always yield the
// same argv. The output sink flag and the target itself are appended by
// the executor.
func BuildCommand(category Category, target Target, iface string) ([]string, error) {
	switch category {
	case CategoryARPDiscovery:
		// Ping-less host presence sweep with ARP probing, randomized order.
		return []string{flagPingSweep, flagResolveAlways, flagARPProbe}, nil

	case CategoryNDDiscovery:
		// IPv6 equivalent of the ARP sweep; the engine substitutes
		// neighbor discovery for ARP in IPv6 mode.
		return []string{flagIPv6, flagResolveAlways, flagPingSweep, flagARPProbe}, nil

	case CategoryLinkLocalDiscovery:
		if iface == "" {
			return nil, errors.ErrInterfaceRequired(target.String())
		}
		return []string{
			flagIPv6, flagResolveAlways, flagPingSweep,
			flagInterface, iface,
			multicastTargetsScript, newTargetsScriptArg,
		}, nil

	case CategoryProtocolDetection:
		if target.IsIPv6() {
			return []string{flagIPv6, flagProtocolScan}, nil
		}
		return []string{flagProtocolScan}, nil

	case CategoryPortScan:
		// No family flag here: the engine assumes IPv4 for this scan type.
		return []string{flagSYNScan}, nil

	case CategoryServiceDiscovery:
		return buildServiceDiscovery(target, iface)

	default:
		return nil, errors.NewScanError(errors.CodeValidation,
			fmt.Sprintf("unknown scan category %q", category))
	}
}

// buildServiceDiscovery constructs the in-depth scan argv. IPv6 targets
// get the IPv6-mode flag prepended; link-local targets additionally get
// an interface binding prepended, and requesting one without an interface
// is a contract violation.
func buildServiceDiscovery(target Target, iface string) ([]string, error) {
	args := []string{flagSYNScan, flagAggressive, flagTimingT4}

	if target.IsIPv6() {
		args = append([]string{flagIPv6}, args...)
	}
	if target.IsLinkLocal() {
		if iface == "" {
			return nil, errors.ErrInterfaceRequired(target.String())
		}
		args = append([]string{flagInterface, iface}, args...)
	}
	return args, nil
}
