package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/sensorcheck/internal/acquire"
	"github.com/banshee-data/sensorcheck/internal/config"
	"github.com/banshee-data/sensorcheck/internal/harness"
	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
	"github.com/banshee-data/sensorcheck/internal/timeutil"
)

type app struct {
	cfg     *config.Config
	clock   timeutil.Clock
	harness *harness.Harness
}

// newApp loads the configuration, applies flag overrides, discovers the
// sensors and wires the harness.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg := &config.Config{}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for flag, field := range map[string]**string{
		"sysfs-root": &cfg.SysfsRoot,
		"log-level":  &cfg.LogLevel,
		"plot-dir":   &cfg.PlotDir,
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*field = &v
		}
	}

	monitoring.SetOutput(cmd.ErrOrStderr())
	if err := monitoring.SetLevel(cfg.GetLogLevel()); err != nil {
		return nil, err
	}

	fs := sysfs.OSFS{Root: cfg.GetSysfsRoot()}
	clock := timeutil.RealClock{}
	d := &iio.Discoverer{FS: fs, MaxDevices: cfg.GetMaxDevices(), MaxTriggers: cfg.GetMaxTriggers()}
	table, err := d.Discover()
	if err != nil {
		// Sensors without a trigger stay in the table and fail when used.
		monitoring.Errorf("%v", err)
	}

	e := acquire.NewEngine(fs, clock, table)
	e.Tick = cfg.GetPollTick()
	e.Slack = cfg.GetSimulationSlack()
	e.Limits = cfg.Limits()
	e.Control.BufferRetries = cfg.GetBufferEnableRetries()
	e.Control.BufferRetryDelay = cfg.GetBufferEnableRetryDelay()
	e.Control.TriggerAttempts = cfg.GetTriggerWriteAttempts()

	h := harness.New(e, cmd.OutOrStdout())
	h.Duration = cfg.GetDefaultDuration()
	h.JitterDuration = cfg.GetJitterDuration()
	h.PlotDir = cfg.GetPlotDir()

	return &app{cfg: cfg, clock: clock, harness: h}, nil
}
