package sweep

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/scanning"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string

	// Canned discoveries keyed by interface name or prefix string.
	linkLocal map[string][]netip.Addr
	network   map[string][]netip.Addr

	// failOn aborts the matching call with an engine error.
	failOn string
}

func (f *fakeRunner) record(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if f.failOn != "" && key == f.failOn {
		return errors.NewEngineError(1, "engine exploded", key, nil)
	}
	return nil
}

func (f *fakeRunner) LinkLocalDiscovery(_ context.Context, iface string) (*scanning.Result, error) {
	if err := f.record("link-local " + iface); err != nil {
		return nil, err
	}
	return &scanning.Result{
		Category: scanning.CategoryLinkLocalDiscovery,
		Hosts:    f.linkLocal[iface],
	}, nil
}

func (f *fakeRunner) ARPHostDiscovery(_ context.Context, network netip.Prefix) (*scanning.Result, error) {
	if err := f.record("arp " + network.String()); err != nil {
		return nil, err
	}
	return &scanning.Result{
		Category: scanning.CategoryARPDiscovery,
		Target:   network.String(),
		Hosts:    f.network[network.String()],
	}, nil
}

func (f *fakeRunner) NDHostDiscovery(_ context.Context, network netip.Prefix) (*scanning.Result, error) {
	if err := f.record("nd " + network.String()); err != nil {
		return nil, err
	}
	return &scanning.Result{
		Category: scanning.CategoryNDDiscovery,
		Target:   network.String(),
		Hosts:    f.network[network.String()],
	}, nil
}

func (f *fakeRunner) ProtocolScan(_ context.Context, network netip.Prefix) (*scanning.Result, error) {
	if err := f.record("protocol " + network.String()); err != nil {
		return nil, err
	}
	// Protocol scans may report hosts, but those must never reach the
	// frontier.
	return &scanning.Result{
		Category: scanning.CategoryProtocolDetection,
		Target:   network.String(),
		Hosts:    []netip.Addr{netip.MustParseAddr("203.0.113.99")},
	}, nil
}

func (f *fakeRunner) InDepthHostScan(_ context.Context, addr netip.Addr, iface string) (*scanning.Result, error) {
	if err := f.record(fmt.Sprintf("in-depth %s %q", addr, iface)); err != nil {
		return nil, err
	}
	return &scanning.Result{
		Category: scanning.CategoryServiceDiscovery,
		Target:   addr.String(),
	}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*scanning.Result
	failOn    scanning.Category
}

func (p *fakePublisher) Publish(_ context.Context, result *scanning.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn != "" && result.Category == p.failOn {
		return errors.WrapReportError(errors.CodeQueue, "queue full", nil)
	}
	p.published = append(p.published, result)
	return nil
}

func (p *fakePublisher) categories() []scanning.Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	cats := make([]scanning.Category, 0, len(p.published))
	for _, r := range p.published {
		cats = append(cats, r.Category)
	}
	return cats
}

func testPlan(t *testing.T, interfaces []config.NetworkInterface, blacklist []string) *config.Plan {
	t.Helper()
	cfg := config.Default()
	cfg.Sweep.BlacklistedHosts = blacklist
	plan, err := config.BuildPlan(cfg, &config.NetworkConfig{Interfaces: interfaces})
	require.NoError(t, err)
	return plan
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return logger
}

func addr(s string) netip.Addr { return netip.MustParseAddr(s) }

func TestSweepSingleInterface(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"192.168.1.12/24"}},
	}, nil)

	runner := &fakeRunner{
		linkLocal: map[string][]netip.Addr{"lan0": {addr("fe80::1")}},
		network:   map[string][]netip.Addr{"192.168.1.0/24": {addr("192.168.1.10"), addr("fe80::1")}},
	}
	publisher := &fakePublisher{}

	orch := NewOrchestrator(runner, publisher, plan, 1, testLogger(t))
	summary, err := orch.Run(context.Background())
	require.NoError(t, err)

	// Strict phase ordering with a single worker, and one in-depth
	// scan per frontier entry, duplicates included.
	assert.Equal(t, []string{
		"link-local lan0",
		"arp 192.168.1.0/24",
		"protocol 192.168.1.0/24",
		`in-depth fe80::1 "lan0"`,
		`in-depth 192.168.1.10 ""`,
		`in-depth fe80::1 ""`,
	}, runner.calls)

	assert.Equal(t, 3, summary.FrontierSize)
	require.Len(t, summary.Phases, 4)
	assert.Equal(t, PhaseLinkLocalDiscovery, summary.Phases[0].Name)
	assert.Equal(t, 1, summary.Phases[0].HostsDiscovered)
	assert.Equal(t, 2, summary.Phases[1].HostsDiscovered)
	assert.Equal(t, 3, summary.Phases[3].Scans)

	// Every completed scan was published, including the informational
	// protocol scan, and the protocol scan's hosts never fed phase 4.
	assert.Equal(t, []scanning.Category{
		scanning.CategoryLinkLocalDiscovery,
		scanning.CategoryARPDiscovery,
		scanning.CategoryProtocolDetection,
		scanning.CategoryServiceDiscovery,
		scanning.CategoryServiceDiscovery,
		scanning.CategoryServiceDiscovery,
	}, publisher.categories())
}

func TestSweepUsesNDForIPv6Networks(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"fe80::1/64"}},
	}, nil)

	runner := &fakeRunner{
		network: map[string][]netip.Addr{"fe80::/64": {addr("fe80::2")}},
	}
	publisher := &fakePublisher{}

	orch := NewOrchestrator(runner, publisher, plan, 1, testLogger(t))
	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, runner.calls, "nd fe80::/64")
	for _, call := range runner.calls {
		assert.NotContains(t, call, "arp ")
	}
}

func TestSweepAbortsOnEngineFailure(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"10.0.0.5/24"}},
	}, nil)

	runner := &fakeRunner{
		linkLocal: map[string][]netip.Addr{"lan0": {addr("fe80::1")}},
		failOn:    "arp 10.0.0.0/24",
	}
	publisher := &fakePublisher{}

	orch := NewOrchestrator(runner, publisher, plan, 1, testLogger(t))
	summary, err := orch.Run(context.Background())
	require.Error(t, err)

	var engineErr *errors.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, 1, engineErr.ExitCode)

	// Phase 3 and 4 never started.
	for _, call := range runner.calls {
		assert.NotContains(t, call, "protocol ")
		assert.NotContains(t, call, "in-depth ")
	}

	// Earlier completed scans were already published.
	assert.Equal(t, []scanning.Category{scanning.CategoryLinkLocalDiscovery},
		publisher.categories())

	// The summary covers only the completed phases.
	require.Len(t, summary.Phases, 1)
	assert.Equal(t, PhaseLinkLocalDiscovery, summary.Phases[0].Name)
}

func TestSweepSkipsBlacklistedHosts(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"192.168.1.12/24"}},
	}, []string{"192.168.1.66"})

	runner := &fakeRunner{
		network: map[string][]netip.Addr{
			"192.168.1.0/24": {addr("192.168.1.10"), addr("192.168.1.66")},
		},
	}
	publisher := &fakePublisher{}

	orch := NewOrchestrator(runner, publisher, plan, 1, testLogger(t))
	summary, err := orch.Run(context.Background())
	require.NoError(t, err)

	for _, call := range runner.calls {
		assert.NotContains(t, call, "192.168.1.66\"")
	}
	assert.Contains(t, runner.calls, `in-depth 192.168.1.10 ""`)

	assert.Equal(t, 2, summary.FrontierSize)
	assert.Equal(t, 1, summary.Phases[3].HostsSkipped)
	assert.Equal(t, 1, summary.Phases[3].Scans)
}

func TestSweepAbortsOnPublishFailure(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"192.168.1.12/24"}},
	}, nil)

	runner := &fakeRunner{
		network: map[string][]netip.Addr{"192.168.1.0/24": {addr("192.168.1.10")}},
	}
	publisher := &fakePublisher{failOn: scanning.CategoryProtocolDetection}

	orch := NewOrchestrator(runner, publisher, plan, 1, testLogger(t))
	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeQueue))

	for _, call := range runner.calls {
		assert.NotContains(t, call, "in-depth ")
	}
}

func TestSweepParallelPhasePreservesFrontierOrder(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"10.1.0.1/24", "10.2.0.1/24", "10.3.0.1/24"}},
	}, nil)

	runner := &fakeRunner{
		network: map[string][]netip.Addr{
			"10.1.0.0/24": {addr("10.1.0.10")},
			"10.2.0.0/24": {addr("10.2.0.10")},
			"10.3.0.0/24": {addr("10.3.0.10")},
		},
	}
	publisher := &fakePublisher{}

	orch := NewOrchestrator(runner, publisher, plan, 4, testLogger(t))
	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.FrontierSize)

	// All three discovered hosts get an in-depth scan; call order is
	// not deterministic with multiple workers.
	var inDepth []string
	for _, call := range runner.calls {
		if len(call) > 8 && call[:8] == "in-depth" {
			inDepth = append(inDepth, call)
		}
	}
	assert.ElementsMatch(t, []string{
		`in-depth 10.1.0.10 ""`,
		`in-depth 10.2.0.10 ""`,
		`in-depth 10.3.0.10 ""`,
	}, inDepth)
}

func TestSweepCancellation(t *testing.T) {
	plan := testPlan(t, []config.NetworkInterface{
		{Name: "lan0", Addresses: []string{"192.168.1.12/24"}},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(&fakeRunner{}, &fakePublisher{}, plan, 1, testLogger(t))
	_, err := orch.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
