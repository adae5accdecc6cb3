// Package sweep coordinates one complete reconnaissance sweep: four
// ordered phases driving the scan engine from broad link-local
// discovery down to per-host in-depth scans, feeding each phase's
// discoveries into the next.
package sweep

import (
	"context"
	"net/netip"
	"time"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/metrics"
	"github.com/netsweep/netsweep/internal/scanning"
)

// Phase names, in execution order.
const (
	PhaseLinkLocalDiscovery = "link-local-discovery"
	PhaseNetworkDiscovery   = "network-discovery"
	PhaseProtocolDiscovery  = "protocol-discovery"
	PhaseHostScanning       = "host-scanning"
)

// ScanRunner is the scan invocation surface the orchestrator drives.
type ScanRunner interface {
	LinkLocalDiscovery(ctx context.Context, iface string) (*scanning.Result, error)
	ARPHostDiscovery(ctx context.Context, network netip.Prefix) (*scanning.Result, error)
	NDHostDiscovery(ctx context.Context, network netip.Prefix) (*scanning.Result, error)
	ProtocolScan(ctx context.Context, network netip.Prefix) (*scanning.Result, error)
	InDepthHostScan(ctx context.Context, addr netip.Addr, iface string) (*scanning.Result, error)
}

// Publisher consumes each completed scan result, once per scan.
type Publisher interface {
	Publish(ctx context.Context, result *scanning.Result) error
}

// PhaseSummary counts the work done by one phase.
type PhaseSummary struct {
	Name            string
	Scans           int
	HostsDiscovered int
	HostsSkipped    int
}

// Summary describes one completed sweep.
type Summary struct {
	StartTime    time.Time
	Duration     time.Duration
	Phases       []PhaseSummary
	FrontierSize int
}

// Orchestrator runs the four sweep phases in strict order. A phase
// never starts before the previous phase's work items all complete,
// and any scan or publish failure aborts the remaining sweep.
type Orchestrator struct {
	runner    ScanRunner
	publisher Publisher
	plan      *config.Plan
	workers   int
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator builds a sweep orchestrator. workers bounds the
// number of concurrent engine invocations within one phase; 1 keeps
// the sweep strictly sequential.
func NewOrchestrator(runner ScanRunner, publisher Publisher, plan *config.Plan, workers int, logger *logging.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		runner:    runner,
		publisher: publisher,
		plan:      plan,
		workers:   workers,
		logger:    logger.WithComponent("sweep"),
		metrics:   metrics.GetGlobalMetrics(),
	}
}

// Run executes one full sweep and returns its summary. On failure the
// summary covers the phases completed so far.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{StartTime: time.Now()}
	defer func() {
		summary.Duration = time.Since(summary.StartTime)
		o.metrics.RecordSweepDuration(summary.Duration)
	}()

	o.logger.InfoSweep("Starting sweep", PhaseLinkLocalDiscovery,
		"interfaces", len(o.plan.Interfaces),
		"networks", len(o.plan.Networks),
		"workers", o.workers)

	var frontier []scanning.DiscoveredHost

	// Phase 1: link-local discovery, one untargeted scan per interface.
	// Discovered hosts keep their originating interface so phase 4 can
	// bind the same interface again.
	results, err := o.runPhase(ctx, PhaseLinkLocalDiscovery, len(o.plan.Interfaces),
		func(ctx context.Context, i int) (*scanning.Result, error) {
			return o.runner.LinkLocalDiscovery(ctx, o.plan.Interfaces[i])
		})
	if err != nil {
		return summary, err
	}
	phase := PhaseSummary{Name: PhaseLinkLocalDiscovery, Scans: len(results)}
	for i, result := range results {
		hosts := result.Discovered(o.plan.Interfaces[i])
		frontier = append(frontier, hosts...)
		phase.HostsDiscovered += len(hosts)
		o.metrics.AddHostsDiscovered(result.Category.String(), len(hosts))
	}
	summary.Phases = append(summary.Phases, phase)

	// Phase 2: per-network host discovery, ARP for IPv4 and neighbor
	// discovery for IPv6.
	results, err = o.runPhase(ctx, PhaseNetworkDiscovery, len(o.plan.Networks),
		func(ctx context.Context, i int) (*scanning.Result, error) {
			network := o.plan.Networks[i]
			if network.Addr().Is4() {
				return o.runner.ARPHostDiscovery(ctx, network)
			}
			return o.runner.NDHostDiscovery(ctx, network)
		})
	if err != nil {
		return summary, err
	}
	phase = PhaseSummary{Name: PhaseNetworkDiscovery, Scans: len(results)}
	for _, result := range results {
		hosts := result.Discovered("")
		frontier = append(frontier, hosts...)
		phase.HostsDiscovered += len(hosts)
		o.metrics.AddHostsDiscovered(result.Category.String(), len(hosts))
	}
	summary.Phases = append(summary.Phases, phase)

	// Phase 3: protocol detection per network. Informational only, the
	// results are published but never feed the frontier.
	results, err = o.runPhase(ctx, PhaseProtocolDiscovery, len(o.plan.Networks),
		func(ctx context.Context, i int) (*scanning.Result, error) {
			return o.runner.ProtocolScan(ctx, o.plan.Networks[i])
		})
	if err != nil {
		return summary, err
	}
	summary.Phases = append(summary.Phases, PhaseSummary{
		Name:  PhaseProtocolDiscovery,
		Scans: len(results),
	})

	summary.FrontierSize = len(frontier)

	// Phase 4: in-depth scan per frontier entry. The frontier is not
	// deduplicated; a host found by two discovery scans is scanned
	// twice. Blacklisted hosts are skipped without an engine run.
	targets := make([]scanning.DiscoveredHost, 0, len(frontier))
	skipped := 0
	for _, host := range frontier {
		if o.plan.IsBlacklisted(host.Addr) {
			skipped++
			o.logger.InfoSweep("Skipping blacklisted host", PhaseHostScanning,
				"address", host.Addr.String())
			continue
		}
		targets = append(targets, host)
	}

	results, err = o.runPhase(ctx, PhaseHostScanning, len(targets),
		func(ctx context.Context, i int) (*scanning.Result, error) {
			return o.runner.InDepthHostScan(ctx, targets[i].Addr, targets[i].Interface)
		})
	if err != nil {
		return summary, err
	}
	summary.Phases = append(summary.Phases, PhaseSummary{
		Name:         PhaseHostScanning,
		Scans:        len(results),
		HostsSkipped: skipped,
	})

	o.logger.InfoSweep("Sweep complete", PhaseHostScanning,
		"frontier", summary.FrontierSize,
		"skipped", skipped)

	return summary, nil
}
