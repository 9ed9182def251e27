package check

import (
	"fmt"

	"github.com/rcourtman/btrfs-check/internal/errors"
)

// ThresholdPolicy holds the configured limits for the space evaluation: two
// absolute byte thresholds on unallocated space and two percentage thresholds
// on allocated space. A byte threshold of 0 disables that comparison.
type ThresholdPolicy struct {
	WarnBytes   int64
	CritBytes   int64
	WarnPercent int
	CritPercent int
}

// NewThresholdPolicy validates the four limits and returns the policy. Byte
// thresholds must be non-negative, percentages must be within 0..100.
func NewThresholdPolicy(warnBytes, critBytes int64, warnPercent, critPercent int) (ThresholdPolicy, error) {
	if warnBytes < 0 {
		return ThresholdPolicy{}, &errors.ConfigurationError{
			Field:  "warning unallocated bytes",
			Reason: fmt.Sprintf("%d is negative", warnBytes),
		}
	}
	if critBytes < 0 {
		return ThresholdPolicy{}, &errors.ConfigurationError{
			Field:  "critical unallocated bytes",
			Reason: fmt.Sprintf("%d is negative", critBytes),
		}
	}
	if warnPercent < 0 || warnPercent > 100 {
		return ThresholdPolicy{}, &errors.ConfigurationError{
			Field:  "warning allocated percent",
			Reason: fmt.Sprintf("%d is outside 0..100", warnPercent),
		}
	}
	if critPercent < 0 || critPercent > 100 {
		return ThresholdPolicy{}, &errors.ConfigurationError{
			Field:  "critical allocated percent",
			Reason: fmt.Sprintf("%d is outside 0..100", critPercent),
		}
	}
	return ThresholdPolicy{
		WarnBytes:   warnBytes,
		CritBytes:   critBytes,
		WarnPercent: warnPercent,
		CritPercent: critPercent,
	}, nil
}
