package scanning

import (
	"context"
	"net/netip"
)

// Runner couples command construction with the executor and exposes one
// method per scan category, mirroring how the sweep orchestrator thinks
// about work items.
type Runner struct {
	exec *Executor
}

// NewRunner creates a runner on top of the given executor.
func NewRunner(exec *Executor) *Runner {
	return &Runner{exec: exec}
}

// run builds the command for a category and executes it.
func (r *Runner) run(ctx context.Context, category Category, target Target, iface string) (*Result, error) {
	args, err := BuildCommand(category, target, iface)
	if err != nil {
		return nil, err
	}
	return r.exec.Execute(ctx, category, args, target)
}

// ARPHostDiscovery performs an ARP surface scan of an IPv4 network.
func (r *Runner) ARPHostDiscovery(ctx context.Context, network netip.Prefix) (*Result, error) {
	return r.run(ctx, CategoryARPDiscovery, NetworkTarget(network), "")
}

// NDHostDiscovery performs a neighbor-discovery surface scan of an IPv6 network.
func (r *Runner) NDHostDiscovery(ctx context.Context, network netip.Prefix) (*Result, error) {
	return r.run(ctx, CategoryNDDiscovery, NetworkTarget(network), "")
}

// LinkLocalDiscovery performs an untargeted IPv6 link-local multicast sweep
// bound to the given interface.
func (r *Runner) LinkLocalDiscovery(ctx context.Context, iface string) (*Result, error) {
	return r.run(ctx, CategoryLinkLocalDiscovery, NoTarget(), iface)
}

// ProtocolScan determines which IP protocols hosts on the network support.
func (r *Runner) ProtocolScan(ctx context.Context, network netip.Prefix) (*Result, error) {
	return r.run(ctx, CategoryProtocolDetection, NetworkTarget(network), "")
}

// PortScan performs a SYN port sweep of a network.
func (r *Runner) PortScan(ctx context.Context, network netip.Prefix) (*Result, error) {
	return r.run(ctx, CategoryPortScan, NetworkTarget(network), "")
}

// InDepthHostScan performs an aggressive service and OS detection scan of a
// single host. iface is required when the address is link-local and ignored
// otherwise.
func (r *Runner) InDepthHostScan(ctx context.Context, addr netip.Addr, iface string) (*Result, error) {
	target := AddressTarget(addr)
	boundIface := ""
	if target.IsLinkLocal() {
		boundIface = iface
	}
	return r.run(ctx, CategoryServiceDiscovery, target, boundIface)
}
