package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/validate"
)

// Config holds the harness settings. Every field is optional; the Get*
// methods supply the defaults for fields left out of the file.
type Config struct {
	// Sysfs
	SysfsRoot   *string `json:"sysfs_root,omitempty"`
	MaxDevices  *int    `json:"max_devices,omitempty"`
	MaxTriggers *int    `json:"max_triggers,omitempty"`

	// Acquisition timing, as duration strings like "100ms"
	PollTick        *string `json:"poll_tick,omitempty"`
	SimulationSlack *string `json:"simulation_slack,omitempty"`
	DefaultDuration *string `json:"default_duration,omitempty"`
	JitterDuration  *string `json:"jitter_duration,omitempty"`

	// Control retries
	BufferEnableRetries    *int    `json:"buffer_enable_retries,omitempty"`
	BufferEnableRetryDelay *string `json:"buffer_enable_retry_delay,omitempty"`
	TriggerWriteAttempts   *int    `json:"trigger_write_attempts,omitempty"`

	// Check limits
	FrequencyTolerance *float64 `json:"frequency_tolerance,omitempty"`
	MaxJitterPercent   *float64 `json:"max_jitter_percent,omitempty"`
	WarmupFraction     *float64 `json:"warmup_fraction,omitempty"`
	AccelMaxDeviation  *float64 `json:"accel_max_deviation,omitempty"`
	MagnMaxDeviation   *float64 `json:"magn_max_deviation,omitempty"`

	// Output
	LogLevel *string `json:"log_level,omitempty"`
	PlotDir  *string `json:"plot_dir,omitempty"`
}

// LoadConfig loads a Config from a JSON file no larger than 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	durations := map[string]*string{
		"poll_tick":                 c.PollTick,
		"simulation_slack":          c.SimulationSlack,
		"default_duration":          c.DefaultDuration,
		"jitter_duration":           c.JitterDuration,
		"buffer_enable_retry_delay": c.BufferEnableRetryDelay,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	counts := map[string]*int{
		"max_devices":            c.MaxDevices,
		"max_triggers":           c.MaxTriggers,
		"buffer_enable_retries":  c.BufferEnableRetries,
		"trigger_write_attempts": c.TriggerWriteAttempts,
	}
	for name, v := range counts {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}

	if c.WarmupFraction != nil && (*c.WarmupFraction < 0 || *c.WarmupFraction >= 1) {
		return fmt.Errorf("warmup_fraction must be in [0, 1), got %f", *c.WarmupFraction)
	}
	if c.FrequencyTolerance != nil && *c.FrequencyTolerance <= 0 {
		return fmt.Errorf("frequency_tolerance must be positive, got %f", *c.FrequencyTolerance)
	}
	if c.MaxJitterPercent != nil && *c.MaxJitterPercent <= 0 {
		return fmt.Errorf("max_jitter_percent must be positive, got %f", *c.MaxJitterPercent)
	}
	return nil
}

func duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

// GetSysfsRoot returns the directory the sysfs and /dev paths are resolved
// under.
func (c *Config) GetSysfsRoot() string { return stringOr(c.SysfsRoot, "/") }

// GetMaxDevices returns how many iio:deviceN entries are probed.
func (c *Config) GetMaxDevices() int { return intOr(c.MaxDevices, iio.DefaultMaxDevices) }

// GetMaxTriggers returns how many triggerN entries are probed.
func (c *Config) GetMaxTriggers() int { return intOr(c.MaxTriggers, iio.DefaultMaxTriggers) }

// GetPollTick returns the longest single wait of the acquisition loop.
func (c *Config) GetPollTick() time.Duration { return duration(c.PollTick, 100*time.Millisecond) }

// GetSimulationSlack returns how long trigger simulators outlive a run.
func (c *Config) GetSimulationSlack() time.Duration {
	return duration(c.SimulationSlack, 2*time.Second)
}

// GetDefaultDuration returns the run length of checks that name none.
func (c *Config) GetDefaultDuration() time.Duration {
	return duration(c.DefaultDuration, 10*time.Second)
}

// GetJitterDuration returns the default run length of jitter and standard
// deviation checks.
func (c *Config) GetJitterDuration() time.Duration {
	return duration(c.JitterDuration, 20*time.Second)
}

func (c *Config) GetBufferEnableRetries() int { return intOr(c.BufferEnableRetries, 3) }

func (c *Config) GetBufferEnableRetryDelay() time.Duration {
	return duration(c.BufferEnableRetryDelay, 10*time.Millisecond)
}

func (c *Config) GetTriggerWriteAttempts() int { return intOr(c.TriggerWriteAttempts, 5) }

func (c *Config) GetLogLevel() string { return stringOr(c.LogLevel, "info") }

func (c *Config) GetPlotDir() string { return stringOr(c.PlotDir, "") }

// Limits returns the check thresholds with overrides applied.
func (c *Config) Limits() validate.Limits {
	l := validate.DefaultLimits()
	l.FrequencyTolerance = floatOr(c.FrequencyTolerance, l.FrequencyTolerance)
	l.MaxJitterPercent = floatOr(c.MaxJitterPercent, l.MaxJitterPercent)
	l.WarmupFraction = floatOr(c.WarmupFraction, l.WarmupFraction)
	l.DispersionBounds[iio.Accelerometer] = floatOr(c.AccelMaxDeviation, l.DispersionBounds[iio.Accelerometer])
	l.DispersionBounds[iio.MagneticField] = floatOr(c.MagnMaxDeviation, l.DispersionBounds[iio.MagneticField])
	return l
}
