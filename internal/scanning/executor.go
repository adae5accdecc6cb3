package scanning

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/metrics"
)

const (
	// outputFlag is the engine's structured-output sink flag.
	outputFlag = "-oX"

	// tempFilePattern names the per-invocation output files.
	tempFilePattern = "netsweep-*.xml"
)

// ExecutorConfig holds the settings for the scan executor.
type ExecutorConfig struct {
	// EnginePath is the scan engine binary to invoke.
	EnginePath string

	// TempDir is where per-invocation output files are created.
	// Empty means the system default.
	TempDir string

	// Timeout bounds a single engine invocation. Zero means no timeout;
	// the engine's own timing options then govern.
	Timeout time.Duration
}

// Executor invokes the external scan engine once per call, synchronously,
// and produces a validated Result. Each invocation gets its own output
// file, so Execute is safe to call from concurrent workers.
type Executor struct {
	cfg     ExecutorConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewExecutor creates an executor for the given engine configuration.
func NewExecutor(cfg ExecutorConfig, logger *logging.Logger) *Executor {
	if cfg.EnginePath == "" {
		cfg.EnginePath = "nmap"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		cfg:     cfg,
		logger:  logger.WithComponent("executor"),
		metrics: metrics.GetGlobalMetrics(),
	}
}

// Execute runs the engine with the built args against the given target and
// returns the parsed result stamped with its category and canonical CIDR
// target. The engine run is the one long-blocking operation in the system;
// cancellation arrives through ctx.
func (e *Executor) Execute(ctx context.Context, category Category, args []string, target Target) (*Result, error) {
	if !category.IsValid() {
		return nil, errors.NewScanError(errors.CodeValidation,
			"unknown scan category "+string(category))
	}

	start := time.Now()
	e.metrics.ScanStarted()
	defer func() {
		e.metrics.ScanFinished()
		e.metrics.RecordScanDuration(category.String(), time.Since(start))
	}()

	outFile, err := os.CreateTemp(e.cfg.TempDir, tempFilePattern)
	if err != nil {
		e.metrics.IncrementScanErrors(category.String(), "temp_file")
		return nil, errors.WrapScanError(errors.CodeFileCreate,
			"failed to allocate engine output file", err)
	}
	outPath := outFile.Name()
	if err := outFile.Close(); err != nil {
		e.logger.Warn("Failed to close output file handle", "path", outPath, "error", err)
	}
	// The output file is write-once, read-once. Cleanup is mandatory even
	// when the run or the parse fails.
	defer func() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("Failed to remove engine output file", "path", outPath, "error", err)
		}
	}()

	argv := make([]string, 0, len(args)+3)
	argv = append(argv, args...)
	argv = append(argv, outputFlag, outPath)
	if !target.IsNone() {
		argv = append(argv, target.EngineArg())
	}
	commandLine := e.cfg.EnginePath + " " + strings.Join(argv, " ")

	e.logger.Debug("Invoking scan engine",
		"category", category.String(),
		"target", target.String(),
		"command", commandLine)

	runCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.cfg.EnginePath, argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.metrics.IncrementScanErrors(category.String(), "engine_failure")
		e.metrics.IncrementScansTotal(category.String(), "error")

		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		e.logger.ErrorScan("Scan engine failed", target.String(), err,
			"category", category.String(),
			"exit_code", exitCode,
			"stderr", stderr.String())
		return nil, errors.NewEngineError(exitCode, stderr.String(), commandLine, err)
	}

	output, err := os.ReadFile(outPath)
	if err != nil {
		e.metrics.IncrementScanErrors(category.String(), "output_read")
		e.metrics.IncrementScansTotal(category.String(), "error")
		return nil, errors.WrapScanErrorWithTarget(errors.CodeOutputParse,
			"failed to read engine output file", target.String(), err)
	}

	run := &nmap.Run{}
	if err := nmap.Parse(output, run); err != nil {
		e.metrics.IncrementScanErrors(category.String(), "output_parse")
		e.metrics.IncrementScansTotal(category.String(), "error")
		return nil, errors.ErrOutputParse(target.String(), err)
	}

	result := &Result{
		Category:  category,
		Target:    target.CIDR(),
		Hosts:     extractHosts(run),
		StartTime: start,
		Duration:  time.Since(start),
		Stats: HostStats{
			Up:    run.Stats.Hosts.Up,
			Down:  run.Stats.Hosts.Down,
			Total: run.Stats.Hosts.Total,
		},
	}

	e.metrics.IncrementScansTotal(category.String(), "success")
	e.logger.InfoScan("Scan completed", target.String(),
		"category", category.String(),
		"hosts_found", len(result.Hosts),
		"duration", result.Duration)

	return result, nil
}

// extractHosts pulls the discovered IP addresses out of the parsed engine
// output, preserving the engine's reporting order.
func extractHosts(run *nmap.Run) []netip.Addr {
	hosts := make([]netip.Addr, 0, len(run.Hosts))
	for i := range run.Hosts {
		h := &run.Hosts[i]
		if h.Status.State == "down" {
			continue
		}
		for _, addr := range h.Addresses {
			if addr.AddrType != "ipv4" && addr.AddrType != "ipv6" {
				continue
			}
			parsed, err := netip.ParseAddr(addr.Addr)
			if err != nil {
				continue
			}
			hosts = append(hosts, parsed)
			break
		}
	}
	return hosts
}
