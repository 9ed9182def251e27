// Package config assembles the run configuration from built-in defaults and
// environment variables. CLI flags are applied on top by the command layer.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rcourtman/btrfs-check/internal/check"
	"github.com/rcourtman/btrfs-check/internal/errors"
)

// Environment variable names. Size values accept plain bytes or humanized
// forms such as "10GiB".
const (
	EnvWarnUnallocated  = "BTRFS_CHECK_WARN_UNALLOCATED"
	EnvCritUnallocated  = "BTRFS_CHECK_CRIT_UNALLOCATED"
	EnvWarnAllocatedPct = "BTRFS_CHECK_WARN_ALLOCATED_PCT"
	EnvCritAllocatedPct = "BTRFS_CHECK_CRIT_ALLOCATED_PCT"
	EnvLogLevel         = "BTRFS_CHECK_LOG_LEVEL"
	EnvLogFormat        = "BTRFS_CHECK_LOG_FORMAT"
)

const (
	DefaultWarnAllocatedPct = 90
	DefaultCritAllocatedPct = 95
)

// Config carries everything one check run needs.
type Config struct {
	WarnUnallocated  int64 // bytes; 0 disables the warning byte check
	CritUnallocated  int64 // bytes; 0 disables the critical byte check
	WarnAllocatedPct int
	CritAllocatedPct int

	LogLevel     string
	LogFormat    string
	PromTextfile string // optional node_exporter textfile path
}

// Load builds the configuration from defaults and the environment. A .env
// file in the working directory is honored for deployment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment overrides from .env")
	}

	cfg := &Config{
		WarnAllocatedPct: DefaultWarnAllocatedPct,
		CritAllocatedPct: DefaultCritAllocatedPct,
		LogLevel:         "warn",
		LogFormat:        "auto",
	}

	var err error
	if cfg.WarnUnallocated, err = sizeFromEnv(EnvWarnUnallocated, cfg.WarnUnallocated); err != nil {
		return nil, err
	}
	if cfg.CritUnallocated, err = sizeFromEnv(EnvCritUnallocated, cfg.CritUnallocated); err != nil {
		return nil, err
	}
	if cfg.WarnAllocatedPct, err = percentFromEnv(EnvWarnAllocatedPct, cfg.WarnAllocatedPct); err != nil {
		return nil, err
	}
	if cfg.CritAllocatedPct, err = percentFromEnv(EnvCritAllocatedPct, cfg.CritAllocatedPct); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// Policy validates the configured thresholds into a policy value.
func (c *Config) Policy() (check.ThresholdPolicy, error) {
	return check.NewThresholdPolicy(c.WarnUnallocated, c.CritUnallocated, c.WarnAllocatedPct, c.CritAllocatedPct)
}

// ParseSize converts a byte-size string (plain bytes or humanized, e.g.
// "10GiB") into a byte count.
func ParseSize(field, value string) (int64, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, &errors.ConfigurationError{
			Field:  field,
			Reason: fmt.Sprintf("%q is not a byte size", value),
		}
	}
	if n > uint64(1)<<62 {
		return 0, &errors.ConfigurationError{
			Field:  field,
			Reason: fmt.Sprintf("%q is out of range", value),
		}
	}
	return int64(n), nil
}

func sizeFromEnv(name string, fallback int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	return ParseSize(name, v)
}

func percentFromEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &errors.ConfigurationError{
			Field:  name,
			Reason: fmt.Sprintf("%q is not an integer percentage", v),
		}
	}
	return n, nil
}
