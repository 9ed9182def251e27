// Package metrics renders the check outcome for the node_exporter textfile
// collector.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/rcourtman/btrfs-check/internal/btrfs"
	"github.com/rcourtman/btrfs-check/internal/check"
)

// WriteTextfile writes one gauge snapshot of the check outcome to path in the
// Prometheus text exposition format. The file is replaced atomically so the
// textfile collector never reads a partial scrape.
func WriteTextfile(path string, severity check.Severity, snap *btrfs.Snapshot) error {
	reg := prometheus.NewRegistry()

	severityGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btrfs_check_severity",
		Help: "Overall check verdict (0=ok, 1=warning, 2=critical, 3=unknown)",
	})
	allocatableLeft := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btrfs_check_allocatable_left_bytes",
		Help: "Physical bytes still available for block-group allocation",
	})
	allocatedPercent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btrfs_check_allocated_percent",
		Help: "Allocated share of allocatable space, rounded to an integer",
	})
	usedPercent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btrfs_check_used_percent",
		Help: "Virtually used share of usable space, rounded to an integer",
	})
	deviceCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btrfs_check_device_count",
		Help: "Number of member devices in the filesystem",
	})
	deviceErrors := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "btrfs_check_device_errors",
		Help: "Per-device error counters as reported by btrfs device stats",
	}, []string{"devid", "counter"})

	reg.MustRegister(severityGauge, allocatableLeft, allocatedPercent, usedPercent, deviceCount, deviceErrors)

	severityGauge.Set(float64(severity))
	allocatableLeft.Set(float64(snap.Usage.AllocatableLeft))
	if pct, ok := check.Percent(snap.Usage.Allocated, snap.Usage.Allocatable); ok {
		allocatedPercent.Set(float64(pct))
	}
	if pct, ok := check.Percent(snap.Usage.VirtualUsed, snap.Usage.VirtualUsed+snap.Usage.FreeData); ok {
		usedPercent.Set(float64(pct))
	}
	deviceCount.Set(float64(len(snap.Devices)))
	for _, dev := range snap.Devices {
		devid := strconv.FormatUint(dev.DevID, 10)
		for _, c := range dev.Counters {
			deviceErrors.WithLabelValues(devid, c.Name).Set(float64(c.Value))
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write metrics file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metrics file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish metrics file: %w", err)
	}
	return nil
}
