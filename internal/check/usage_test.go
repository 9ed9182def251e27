package check

import (
	"strings"
	"testing"

	"github.com/rcourtman/btrfs-check/internal/btrfs"
)

func mustPolicy(t *testing.T, warnBytes, critBytes int64, warnPct, critPct int) ThresholdPolicy {
	t.Helper()
	policy, err := NewThresholdPolicy(warnBytes, critBytes, warnPct, critPct)
	if err != nil {
		t.Fatalf("NewThresholdPolicy() error = %v", err)
	}
	return policy
}

func TestEvaluateUsage(t *testing.T) {
	tests := []struct {
		name         string
		snap         btrfs.UsageSnapshot
		mixed        bool
		policy       ThresholdPolicy
		wantSeverity Severity
		wantMessages int
		wantContains []string
	}{
		{
			name: "healthy filesystem",
			snap: btrfs.UsageSnapshot{
				Total: 1000, Allocatable: 1000, Allocated: 100, AllocatableLeft: 900,
				VirtualUsed: 50, FreeData: 950,
			},
			policy:       mustPolicy(t, 0, 0, 90, 95),
			wantSeverity: SeverityOK,
			wantMessages: 0,
		},
		{
			name: "allocated percent crosses warning",
			snap: btrfs.UsageSnapshot{
				Total: 1000, Allocatable: 1000, Allocated: 900, AllocatableLeft: 100,
				VirtualUsed: 500, FreeData: 500,
			},
			policy:       mustPolicy(t, 0, 0, 80, 95),
			wantSeverity: SeverityWarning,
			wantMessages: 1,
			wantContains: []string{"Warning: Allocated: 90% (Used: 50%)"},
		},
		{
			name: "allocatable left below critical bytes wins over clean percentages",
			snap: btrfs.UsageSnapshot{
				Total: 100e9, Allocatable: 100e9, Allocated: 95e9, AllocatableLeft: 5e9,
				VirtualUsed: 10e9, FreeData: 90e9,
			},
			policy:       mustPolicy(t, 0, 10e9, 100, 100),
			wantSeverity: SeverityCritical,
			wantMessages: 1,
			wantContains: []string{"Critical: Unallocated left:"},
		},
		{
			name: "inclusive percent boundary at 100",
			snap: btrfs.UsageSnapshot{
				Total: 1000, Allocatable: 1000, Allocated: 1000, AllocatableLeft: 0,
				VirtualUsed: 500, FreeData: 500,
			},
			policy:       mustPolicy(t, 0, 0, 100, 100),
			wantSeverity: SeverityCritical,
			wantMessages: 1,
			wantContains: []string{"Critical: Allocated: 100%"},
		},
		{
			name: "both sub-checks fire in order",
			snap: btrfs.UsageSnapshot{
				Total: 1000, Allocatable: 1000, Allocated: 950, AllocatableLeft: 50,
				VirtualUsed: 400, FreeData: 100,
			},
			policy:       mustPolicy(t, 100, 0, 80, 95),
			wantSeverity: SeverityCritical,
			wantMessages: 2,
			wantContains: []string{"Warning: Unallocated left:", "Critical: Allocated: 95%"},
		},
		{
			name: "mixed groups report the mixed free figure",
			snap: btrfs.UsageSnapshot{
				Total: 1000, Allocatable: 1000, Allocated: 990, AllocatableLeft: 10,
				VirtualUsed: 500, FreeMixed: 300,
			},
			mixed:        true,
			policy:       mustPolicy(t, 100, 0, 100, 100),
			wantSeverity: SeverityWarning,
			wantContains: []string{"Unused left: 300 B"},
		},
		{
			name: "zero thresholds disable the byte check",
			snap: btrfs.UsageSnapshot{
				Total: 1000, Allocatable: 1000, Allocated: 999, AllocatableLeft: 1,
				VirtualUsed: 1, FreeData: 1,
			},
			policy:       mustPolicy(t, 0, 0, 100, 100),
			wantSeverity: SeverityCritical, // 100% allocated, not the byte check
			wantMessages: 1,
			wantContains: []string{"Allocated: 100%"},
		},
		{
			name:         "zero-sized snapshot degrades to unknown",
			snap:         btrfs.UsageSnapshot{},
			policy:       mustPolicy(t, 0, 0, 90, 95),
			wantSeverity: SeverityUnknown,
			wantMessages: 1,
			wantContains: []string{"Unknown:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := EvaluateUsage(tt.snap, tt.mixed, tt.policy)
			if res.Severity != tt.wantSeverity {
				t.Errorf("severity = %v, want %v (messages: %v)", res.Severity, tt.wantSeverity, res.Messages)
			}
			if tt.wantMessages > 0 && len(res.Messages) != tt.wantMessages {
				t.Errorf("got %d messages %v, want %d", len(res.Messages), res.Messages, tt.wantMessages)
			}
			joined := strings.Join(res.Messages, ", ")
			for _, want := range tt.wantContains {
				if !strings.Contains(joined, want) {
					t.Errorf("messages %q do not contain %q", joined, want)
				}
			}
			if len(res.Summary) != 5 {
				t.Errorf("got %d summary entries %v, want 5", len(res.Summary), res.Summary)
			}
		})
	}
}

func TestEvaluateUsageSeverityMonotonic(t *testing.T) {
	policy := mustPolicy(t, 0, 0, 80, 95)

	previous := SeverityOK
	for allocated := uint64(0); allocated <= 1000; allocated += 10 {
		snap := btrfs.UsageSnapshot{
			Total: 1000, Allocatable: 1000, Allocated: allocated,
			AllocatableLeft: 1000 - allocated,
			VirtualUsed:     allocated, FreeData: 1000 - allocated + 1,
		}
		res := EvaluateUsage(snap, false, policy)
		if res.Severity < previous {
			t.Fatalf("severity dropped from %v to %v at allocated=%d", previous, res.Severity, allocated)
		}
		previous = res.Severity
	}
	if previous != SeverityCritical {
		t.Fatalf("severity at 100%% allocated = %v, want %v", previous, SeverityCritical)
	}
}

func TestEvaluateUsageSummaryAlwaysPresent(t *testing.T) {
	snap := btrfs.UsageSnapshot{
		Total: 2048, Allocatable: 2048, Allocated: 1024, AllocatableLeft: 1024,
		UnallocatableSoft: 512, UnallocatableReclaimable: 256,
		VirtualUsed: 512, FreeData: 512,
	}
	res := EvaluateUsage(snap, false, mustPolicy(t, 0, 0, 100, 100))

	want := []string{
		"Total size: 2.0 KiB",
		"Allocatable: 2.0 KiB",
		"Allocated: 1.0 KiB (50%)",
		"Unallocatable: 512 B soft, 256 B reclaimable",
		"Virtual used: 512 B (50%)",
	}
	if len(res.Summary) != len(want) {
		t.Fatalf("summary = %v, want %d entries", res.Summary, len(want))
	}
	for i, line := range want {
		if res.Summary[i] != line {
			t.Errorf("summary[%d] = %q, want %q", i, res.Summary[i], line)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		n, d   uint64
		want   int
		wantOK bool
	}{
		{900, 1000, 90, true},
		{1, 3, 33, true},
		{2, 3, 67, true},
		{5, 1000, 1, true}, // 0.5% rounds away from zero
		{0, 1000, 0, true},
		{1000, 1000, 100, true},
		{1, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := Percent(tt.n, tt.d)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Percent(%d, %d) = (%d, %v), want (%d, %v)", tt.n, tt.d, got, ok, tt.want, tt.wantOK)
		}
	}
}
