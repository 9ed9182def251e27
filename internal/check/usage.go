package check

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/rcourtman/btrfs-check/internal/btrfs"
)

// EvaluateUsage applies the threshold policy to a space-allocation snapshot.
//
// Two independent sub-checks run: unallocated space against the absolute byte
// thresholds, and the allocated percentage against the percent thresholds.
// The result severity is the maximum of the two. Percent comparisons are
// inclusive, so a threshold of 100 fires at exactly 100%.
func EvaluateUsage(snap btrfs.UsageSnapshot, mixedGroups bool, policy ThresholdPolicy) Result {
	// With mixed block groups there is no separate data figure, so the
	// combined free space is the authoritative "space left for new writes".
	unusedLeft := snap.FreeData
	if mixedGroups {
		unusedLeft = snap.FreeMixed
	}

	var res Result

	switch {
	case snap.AllocatableLeft < uint64(policy.CritBytes):
		res.Severity = SeverityCritical
		res.Messages = append(res.Messages, fmt.Sprintf("Critical: Unallocated left: %s (Unused left: %s)",
			humanize.IBytes(snap.AllocatableLeft), humanize.IBytes(unusedLeft)))
	case snap.AllocatableLeft < uint64(policy.WarnBytes):
		res.Severity = SeverityWarning
		res.Messages = append(res.Messages, fmt.Sprintf("Warning: Unallocated left: %s (Unused left: %s)",
			humanize.IBytes(snap.AllocatableLeft), humanize.IBytes(unusedLeft)))
	}

	allocatedPct, allocOK := Percent(snap.Allocated, snap.Allocatable)
	usedPct, usedOK := Percent(snap.VirtualUsed, snap.VirtualUsed+snap.FreeData)

	switch {
	case !allocOK || !usedOK:
		// A zero-sized snapshot cannot happen on a mounted filesystem;
		// report it instead of faulting on the division.
		res.Severity = res.Severity.Max(SeverityUnknown)
		res.Messages = append(res.Messages, "Unknown: allocation percentages not computable (zero-sized snapshot)")
	case allocatedPct >= policy.CritPercent:
		res.Severity = res.Severity.Max(SeverityCritical)
		res.Messages = append(res.Messages, fmt.Sprintf("Critical: Allocated: %d%% (Used: %d%%)", allocatedPct, usedPct))
	case allocatedPct >= policy.WarnPercent:
		res.Severity = res.Severity.Max(SeverityWarning)
		res.Messages = append(res.Messages, fmt.Sprintf("Warning: Allocated: %d%% (Used: %d%%)", allocatedPct, usedPct))
	}

	res.Summary = []string{
		fmt.Sprintf("Total size: %s", humanize.IBytes(snap.Total)),
		fmt.Sprintf("Allocatable: %s", humanize.IBytes(snap.Allocatable)),
		fmt.Sprintf("Allocated: %s (%d%%)", humanize.IBytes(snap.Allocated), allocatedPct),
		fmt.Sprintf("Unallocatable: %s soft, %s reclaimable",
			humanize.IBytes(snap.UnallocatableSoft), humanize.IBytes(snap.UnallocatableReclaimable)),
		fmt.Sprintf("Virtual used: %s (%d%%)", humanize.IBytes(snap.VirtualUsed), usedPct),
	}
	return res
}

// Percent returns n*100/d as an integer percentage, rounding halves away
// from zero. ok is false when the denominator is zero.
func Percent(n, d uint64) (pct int, ok bool) {
	if d == 0 {
		return 0, false
	}
	return int(math.Round(float64(n) * 100 / float64(d))), true
}
