package btrfs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/btrfs-check/internal/errors"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Pre-compiled regexes for the btrfs-progs output formats
var (
	devidRe = regexp.MustCompile(`^devid\s+(\d+)\s+size\s+(\d+)\s+used\s+(\d+)\s+path\s+(.+)$`)
	statRe  = regexp.MustCompile(`^\[(.+)\]\.(\S+)\s+(\d+)$`)
)

const commandTimeout = 5 * time.Second

// Collect captures one atomic snapshot of the filesystem mounted at mount.
// The mount point is held open for the duration of the capture so the
// filesystem cannot be unmounted halfway through; any failure aborts the
// whole acquisition without returning a partial snapshot.
func Collect(ctx context.Context, mount string) (*Snapshot, error) {
	return collect(ctx, mount, defaultRunCommandOutput)
}

func collect(ctx context.Context, mount string, run commandRunner) (*Snapshot, error) {
	dir, err := os.Open(mount)
	if err != nil {
		return nil, &errors.SnapshotError{Op: "open mount point", Err: err}
	}
	defer dir.Close()

	usage, mixed, err := collectUsage(ctx, mount, run)
	if err != nil {
		return nil, err
	}

	devices, err := collectDeviceStats(ctx, mount, run)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Usage: usage, MixedGroups: mixed, Devices: devices}, nil
}

func collectUsage(ctx context.Context, mount string, run commandRunner) (UsageSnapshot, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	output, err := run(ctx, "btrfs", "filesystem", "usage", "-b", mount)
	if err != nil {
		return UsageSnapshot{}, false, &errors.SnapshotError{Op: "btrfs filesystem usage", Err: err}
	}

	return parseUsage(string(output))
}

// parseUsage reads the Overall block of `btrfs filesystem usage -b` and the
// block-group section headers that follow it. A Data+Metadata section means
// the filesystem runs with mixed block groups.
func parseUsage(output string) (UsageSnapshot, bool, error) {
	var snap UsageSnapshot
	var slack, missing, free uint64
	mixed := false
	inOverall := false
	sawOverall := false

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if !indented {
			if trimmed == "Overall:" {
				inOverall = true
				sawOverall = true
			} else {
				// Block-group section header, e.g. "Data,RAID1: Size:..."
				inOverall = false
				if strings.HasPrefix(trimmed, "Data+Metadata") {
					mixed = true
				}
			}
			continue
		}
		if !inOverall {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Strip trailing annotations such as "(min: ...)"
		if idx := strings.IndexByte(value, '('); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}

		var dst *uint64
		switch key {
		case "Device size":
			dst = &snap.Total
		case "Device allocated":
			dst = &snap.Allocated
		case "Device missing":
			dst = &missing
		case "Device slack":
			dst = &slack
		case "Used":
			dst = &snap.VirtualUsed
		case "Free (estimated)":
			dst = &free
		case "Unallocatable (soft)":
			dst = &snap.UnallocatableSoft
		case "Unallocatable (reclaimable)":
			dst = &snap.UnallocatableReclaimable
		default:
			continue
		}

		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return UsageSnapshot{}, false, &errors.SnapshotError{
				Op:  "parse filesystem usage",
				Err: fmt.Errorf("unexpected value %q for %q", value, key),
			}
		}
		*dst = n
	}

	if !sawOverall || snap.Total == 0 {
		return UsageSnapshot{}, false, &errors.SnapshotError{
			Op:  "parse filesystem usage",
			Err: fmt.Errorf("no usable Overall section in btrfs output"),
		}
	}

	// Slack and missing device space can never hold block groups.
	snap.Allocatable = snap.Total
	if slack+missing < snap.Allocatable {
		snap.Allocatable -= slack + missing
	}
	if snap.Allocatable > snap.Allocated {
		snap.AllocatableLeft = snap.Allocatable - snap.Allocated
	}
	if mixed {
		snap.FreeMixed = free
	} else {
		snap.FreeData = free
	}

	return snap, mixed, nil
}

func collectDeviceStats(ctx context.Context, mount string, run commandRunner) ([]DeviceStats, error) {
	showCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	showOut, err := run(showCtx, "btrfs", "filesystem", "show", "--raw", mount)
	if err != nil {
		return nil, &errors.SnapshotError{Op: "btrfs filesystem show", Err: err}
	}

	refs := parseShowDevices(string(showOut))
	if len(refs) == 0 {
		return nil, &errors.SnapshotError{
			Op:  "parse filesystem show",
			Err: fmt.Errorf("no devices listed for %s", mount),
		}
	}

	statsCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	statsOut, err := run(statsCtx, "btrfs", "device", "stats", mount)
	if err != nil {
		return nil, &errors.SnapshotError{Op: "btrfs device stats", Err: err}
	}

	return joinDeviceStats(refs, parseDeviceStats(string(statsOut))), nil
}

// parseShowDevices extracts the devid/path pairs from `btrfs filesystem show
// --raw`, preserving the listing order.
func parseShowDevices(output string) []DeviceStats {
	var refs []DeviceStats
	for _, line := range strings.Split(output, "\n") {
		matches := devidRe.FindStringSubmatch(strings.TrimSpace(line))
		if len(matches) < 5 {
			continue
		}
		devid, err := strconv.ParseUint(matches[1], 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, DeviceStats{
			DevID: devid,
			Path:  strings.TrimSpace(matches[4]),
		})
	}
	return refs
}

// parseDeviceStats groups the `[<path>].<counter> <value>` lines of `btrfs
// device stats` by device path, preserving counter order per device.
func parseDeviceStats(output string) map[string][]Counter {
	counters := make(map[string][]Counter)
	for _, line := range strings.Split(output, "\n") {
		matches := statRe.FindStringSubmatch(strings.TrimSpace(line))
		if len(matches) < 4 {
			continue
		}
		value, err := strconv.ParseUint(matches[3], 10, 64)
		if err != nil {
			continue
		}
		path := matches[1]
		counters[path] = append(counters[path], Counter{Name: matches[2], Value: value})
	}
	return counters
}

func joinDeviceStats(refs []DeviceStats, counters map[string][]Counter) []DeviceStats {
	devices := make([]DeviceStats, 0, len(refs))
	for _, ref := range refs {
		ref.Counters = counters[ref.Path]
		devices = append(devices, ref)
		delete(counters, ref.Path)
	}
	for path := range counters {
		log.Debug().
			Str("component", "btrfs").
			Str("device", path).
			Msg("Device stats reported for a device not in the filesystem listing")
	}
	return devices
}

func defaultRunCommandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}
