package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/report"
	"github.com/netsweep/netsweep/internal/scanning"
	"github.com/netsweep/netsweep/internal/sweep"
)

var (
	sweepTopologyFile string
	sweepWorkers      int
	sweepEnginePath   string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one complete reconnaissance sweep",
	Long: `Run all four sweep phases against the configured interfaces and
networks: link-local discovery per interface, ARP/ND host discovery per
network, protocol detection per network, and an in-depth scan for every
discovered host that is not blacklisted.

The sweep aborts on the first engine or pipeline failure. Results from
scans completed before the failure are already signed and queued.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepTopologyFile, "topology", "",
		"network topology file (overrides sweep.network_config_file)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0,
		"concurrent engine invocations per phase (overrides sweep.workers)")
	sweepCmd.Flags().StringVar(&sweepEnginePath, "engine", "",
		"scan engine binary (overrides engine.path)")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applySweepOverrides(cfg)

	logger := logging.Default()

	topology := cfg.Sweep.NetworkConfigFile
	netcfg, err := config.LoadNetworkConfig(topology)
	if err != nil {
		return fmt.Errorf("failed to load network topology: %w", err)
	}

	plan, err := config.BuildPlan(cfg, netcfg)
	if err != nil {
		return fmt.Errorf("failed to build sweep plan: %w", err)
	}
	if len(plan.Interfaces) == 0 {
		return fmt.Errorf("no interfaces in %s match pattern %q",
			topology, cfg.Sweep.InterfacePattern)
	}

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	executor := scanning.NewExecutor(scanning.ExecutorConfig{
		EnginePath: cfg.Engine.Path,
		TempDir:    cfg.Engine.TempDir,
		Timeout:    cfg.Engine.Timeout(),
	}, logger)
	runner := scanning.NewRunner(executor)

	orch := sweep.NewOrchestrator(runner, pipeline, plan, cfg.Sweep.Workers, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := orch.Run(ctx)
	if err != nil {
		printSweepFailure(err)
		return err
	}

	printSweepSummary(summary)
	return nil
}

// applySweepOverrides folds command-line flags into the loaded
// configuration.
func applySweepOverrides(cfg *config.Config) {
	if sweepTopologyFile != "" {
		cfg.Sweep.NetworkConfigFile = sweepTopologyFile
	}
	if sweepWorkers > 0 {
		cfg.Sweep.Workers = sweepWorkers
	}
	if sweepEnginePath != "" {
		cfg.Engine.Path = sweepEnginePath
	}
}

func buildPipeline(cfg *config.Config, logger *logging.Logger) (*report.Pipeline, error) {
	signer, err := report.NewSigner(cfg.Report.Signing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize report signer: %w", err)
	}

	queue, err := report.NewQueue(cfg.Report.QueueDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open report queue: %w", err)
	}

	resolver := report.NewResolver(cfg.Report.ReverseDNS, logger)
	return report.NewPipeline(signer, queue, resolver, logger), nil
}

// printSweepFailure prints the failing command and its diagnostics
// before the error bubbles up to Cobra.
func printSweepFailure(err error) {
	var engineErr *errors.EngineError
	if stderrors.As(err, &engineErr) {
		fmt.Fprintf(os.Stderr, "Sweep aborted: engine exited with code %d\n", engineErr.ExitCode)
		fmt.Fprintf(os.Stderr, "  command: %s\n", engineErr.Command)
		if engineErr.Stderr != "" {
			fmt.Fprintf(os.Stderr, "  stderr:  %s\n", engineErr.Stderr)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Sweep aborted: %v\n", err)
}

func printSweepSummary(summary *sweep.Summary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Phase", "Scans", "Hosts Found", "Skipped")

	for _, phase := range summary.Phases {
		_ = table.Append([]string{
			phase.Name,
			strconv.Itoa(phase.Scans),
			strconv.Itoa(phase.HostsDiscovered),
			strconv.Itoa(phase.HostsSkipped),
		})
	}

	_ = table.Render()
	fmt.Printf("Frontier: %d hosts, sweep finished in %s\n",
		summary.FrontierSize, summary.Duration.Round(time.Millisecond))
}
