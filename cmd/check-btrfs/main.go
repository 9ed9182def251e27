package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"

	"github.com/rcourtman/btrfs-check/internal/btrfs"
	"github.com/rcourtman/btrfs-check/internal/check"
	"github.com/rcourtman/btrfs-check/internal/config"
	"github.com/rcourtman/btrfs-check/internal/errors"
	"github.com/rcourtman/btrfs-check/internal/logging"
	"github.com/rcourtman/btrfs-check/internal/metrics"
)

// Version is set at build time with -ldflags
var Version = "dev"

// Exit status when the snapshot cannot be acquired at all: deliberately
// outside the severity range so schedulers can tell a broken probe from a
// broken filesystem.
const exitSnapshotFailure = 4

// Seams for tests
var (
	osExit          = os.Exit
	diskPartitions  = disk.PartitionsWithContext
	collectSnapshot = btrfs.Collect
	writeTextfile   = metrics.WriteTextfile
)

var (
	flagWarnUnallocated string
	flagCritUnallocated string
	flagWarnPct         int
	flagCritPct         int
	flagLogLevel        string
	flagLogFormat       string
	flagPromTextfile    string
)

var rootCmd = &cobra.Command{
	Use:     "check-btrfs [flags] MOUNTPOINT",
	Short:   "Health check for mounted btrfs filesystems",
	Long:    `check-btrfs samples space allocation and per-device error counters of a mounted btrfs filesystem, compares them against configurable thresholds and reports a monitoring verdict: the exit status is 0 (ok), 1 (warning), 2 (critical) or 3 (unknown), with a deviation line and a statistics line on standard output.`,
	Version: Version,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		osExit(run(cmd, args[0]))
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagWarnUnallocated, "warn-unallocated", "0", "warn when unallocated space drops below this size (e.g. 10GiB; 0 disables)")
	flags.StringVar(&flagCritUnallocated, "crit-unallocated", "0", "critical when unallocated space drops below this size (0 disables)")
	flags.IntVar(&flagWarnPct, "warn-allocated-pct", config.DefaultWarnAllocatedPct, "warn when allocated space reaches this percentage")
	flags.IntVar(&flagCritPct, "crit-allocated-pct", config.DefaultCritAllocatedPct, "critical when allocated space reaches this percentage")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (logs go to stderr)")
	flags.StringVar(&flagLogFormat, "log-format", "", "log format: auto, console, json")
	flags.StringVar(&flagPromTextfile, "prom-textfile", "", "also write metrics to this node_exporter textfile collector path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		osExit(int(check.SeverityUnknown))
	}
}

func run(cmd *cobra.Command, mount string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		return check.SeverityCritical.ExitCode()
	}
	if err := applyFlags(cmd, cfg); err != nil {
		fmt.Println(err)
		return check.SeverityCritical.ExitCode()
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "check-btrfs",
	})

	return runCheck(cmd.Context(), os.Stdout, cfg, mount)
}

// applyFlags copies flag values the user set explicitly over the loaded
// configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("warn-unallocated") {
		n, err := config.ParseSize("--warn-unallocated", flagWarnUnallocated)
		if err != nil {
			return err
		}
		cfg.WarnUnallocated = n
	}
	if flags.Changed("crit-unallocated") {
		n, err := config.ParseSize("--crit-unallocated", flagCritUnallocated)
		if err != nil {
			return err
		}
		cfg.CritUnallocated = n
	}
	if flags.Changed("warn-allocated-pct") {
		cfg.WarnAllocatedPct = flagWarnPct
	}
	if flags.Changed("crit-allocated-pct") {
		cfg.CritAllocatedPct = flagCritPct
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagPromTextfile != "" {
		cfg.PromTextfile = flagPromTextfile
	}
	return nil
}

// runCheck executes one probe run and returns the process exit status.
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, mount string) int {
	if ctx == nil {
		ctx = context.Background()
	}

	policy, err := cfg.Policy()
	if err != nil {
		fmt.Fprintln(out, err)
		return check.SeverityCritical.ExitCode()
	}

	mount, err = verifyMount(ctx, mount)
	if err != nil {
		fmt.Fprintln(out, err)
		return check.SeverityCritical.ExitCode()
	}

	snap, err := collectSnapshot(ctx, mount)
	if err != nil {
		log.Error().Err(err).Str("mount", mount).Msg("Snapshot acquisition failed, no verdict produced")
		return exitSnapshotFailure
	}

	report := check.Aggregate(
		check.EvaluateUsage(snap.Usage, snap.MixedGroups, policy),
		check.EvaluateDeviceStats(snap.Devices),
	)

	if cfg.PromTextfile != "" {
		if err := writeTextfile(cfg.PromTextfile, report.Severity, snap); err != nil {
			log.Warn().Err(err).Str("path", cfg.PromTextfile).Msg("Failed to write metrics textfile")
		}
	}

	fmt.Fprintln(out, report.Message)
	fmt.Fprintln(out, report.Summary)
	return report.Severity.ExitCode()
}

// verifyMount checks that the argument is an accessible btrfs mount point
// before anything else runs, and resolves it to an absolute path.
func verifyMount(ctx context.Context, mount string) (string, error) {
	abs, err := filepath.Abs(mount)
	if err != nil {
		return "", &errors.ConfigurationError{Field: "mount point", Reason: err.Error()}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &errors.ConfigurationError{
			Field:  "mount point",
			Reason: fmt.Sprintf("%s is not accessible: %v", abs, err),
		}
	}
	if !info.IsDir() {
		return "", &errors.ConfigurationError{
			Field:  "mount point",
			Reason: fmt.Sprintf("%s is not a directory", abs),
		}
	}

	parts, err := diskPartitions(ctx, true)
	if err != nil {
		// The collector will surface a real failure; a broken partition
		// listing alone should not fail the pre-flight.
		log.Warn().Err(err).Msg("Could not list partitions, skipping filesystem type verification")
		return abs, nil
	}
	for _, part := range parts {
		if part.Mountpoint == abs && part.Fstype == "btrfs" {
			return abs, nil
		}
	}
	return "", &errors.ConfigurationError{
		Field:  "mount point",
		Reason: fmt.Sprintf("%s is not a mounted btrfs filesystem", abs),
	}
}
