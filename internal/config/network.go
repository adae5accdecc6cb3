package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netsweep/netsweep/internal/errors"
)

// NetworkInterface describes one managed interface and the addresses
// currently bound to it, as reported by the external configuration
// provider.
type NetworkInterface struct {
	Name string `yaml:"name" json:"name"`

	// Addresses are the interface's bound addresses in CIDR form
	// (address plus on-link prefix length).
	Addresses []string `yaml:"addresses" json:"addresses"`
}

// NetworkConfig is the topology file content.
type NetworkConfig struct {
	Interfaces []NetworkInterface `yaml:"interfaces" json:"interfaces"`
}

// LoadNetworkConfig reads the topology file written by the network
// configuration provider.
func LoadNetworkConfig(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeFileNotFound,
			"failed to read network config file", err)
	}

	var netcfg NetworkConfig
	if err := yaml.Unmarshal(data, &netcfg); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"failed to parse network config file", err)
	}
	return &netcfg, nil
}

// Plan is the immutable work set for one sweep: the interfaces to run
// link-local discovery on, the network prefixes to discover hosts in, and
// the addresses excluded from in-depth scanning. Built once at
// orchestrator start; never mutated during the sweep.
type Plan struct {
	// Interfaces selected by the LAN-name predicate, in topology order.
	Interfaces []string

	// Networks derived from the selected interfaces' bound addresses,
	// IPv4 and IPv6 mixed, in topology order.
	Networks []netip.Prefix

	blacklist map[netip.Addr]struct{}
}

// BuildPlan derives the sweep work set from the application and network
// configuration. Interfaces whose name does not match the LAN selection
// predicate are ignored along with their networks.
func BuildPlan(cfg *Config, netcfg *NetworkConfig) (*Plan, error) {
	pattern := cfg.Sweep.InterfacePattern
	if pattern == "" {
		pattern = defaultInterfacePattern
	}

	plan := &Plan{
		blacklist: make(map[netip.Addr]struct{}, len(cfg.Sweep.BlacklistedHosts)),
	}

	for _, iface := range netcfg.Interfaces {
		if !strings.Contains(iface.Name, pattern) {
			continue // Interface we don't care about.
		}
		plan.Interfaces = append(plan.Interfaces, iface.Name)

		for _, addr := range iface.Addresses {
			prefix, err := netip.ParsePrefix(addr)
			if err != nil {
				return nil, errors.WrapConfigError(errors.CodeValidation,
					fmt.Sprintf("interface %s has invalid address %q", iface.Name, addr), err)
			}
			plan.Networks = append(plan.Networks, prefix.Masked())
		}
	}

	for _, host := range cfg.Sweep.BlacklistedHosts {
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return nil, errors.WrapConfigError(errors.CodeValidation,
				fmt.Sprintf("invalid blacklisted host %q", host), err)
		}
		plan.blacklist[addr] = struct{}{}
	}

	return plan, nil
}

// IsBlacklisted reports whether the address is excluded from in-depth
// scanning.
func (p *Plan) IsBlacklisted(addr netip.Addr) bool {
	_, ok := p.blacklist[addr]
	return ok
}

// BlacklistSize returns the number of blacklisted addresses.
func (p *Plan) BlacklistSize() int {
	return len(p.blacklist)
}
