package check

import (
	"fmt"
	"strings"

	"github.com/rcourtman/btrfs-check/internal/btrfs"
)

// EvaluateDeviceStats inspects the per-device error counters. Any non-zero
// counter means the hardware or IO path misbehaved at some point, so there is
// no warning tier: one bad counter makes the whole check critical. Devices
// with all-zero counters stay silent. Device and counter order follow the
// snapshot.
func EvaluateDeviceStats(devices []btrfs.DeviceStats) Result {
	res := Result{
		Summary: []string{fmt.Sprintf("Devices: %d", len(devices))},
	}
	for _, dev := range devices {
		var fragments []string
		for _, c := range dev.Counters {
			if c.Value != 0 {
				fragments = append(fragments, fmt.Sprintf("%s: %d", c.Name, c.Value))
			}
		}
		if len(fragments) > 0 {
			res.Severity = SeverityCritical
			res.Messages = append(res.Messages, fmt.Sprintf("Device %d: %s", dev.DevID, strings.Join(fragments, ", ")))
		}
	}
	return res
}
