package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensorcheck/internal/report"
	"github.com/banshee-data/sensorcheck/internal/script"
	"github.com/banshee-data/sensorcheck/internal/validate"
	"github.com/banshee-data/sensorcheck/internal/version"
)

var errTestsFailed = errors.New("tests failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sensorcheck",
		Short:         "validate Linux IIO sensors",
		Long:          "sensorcheck discovers IIO sensors and checks their sample rate, timestamps, latency and noise.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "JSON configuration file")
	flags.String("sysfs-root", "", "directory the /sys and /dev paths are resolved under")
	flags.String("log-level", "", "error, info, debug or verbose")
	flags.String("results", "", "write detailed results to this file")
	flags.String("plot-dir", "", "write jitter interval histograms to this directory")

	root.AddCommand(newListCmd(), newExecCmd(), newSuiteCmd(), newVersionCmd())
	return root
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list discovered sensors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			line := "list"
			if triggers, _ := cmd.Flags().GetBool("triggers"); triggers {
				line = "list_trig"
			}
			a.harness.RunLine(cmd.Context(), line)
			return nil
		},
	}
	cmd.Flags().Bool("triggers", false, "list triggers instead of sensors")
	return cmd
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command> [sensor [freq f [delay]] ...] [duration n | counter n]",
		Short: "run a single command",
		Long: "exec runs one harness command. Commands: " + strings.Join(script.Verbs(), ", ") + ".",
		Example: `  sensorcheck exec check_freq accel freq 50 duration 10
  sensorcheck exec jitter accel anglvel
  sensorcheck exec activate_deactivate magn counter 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			rep := report.New(a.clock.Now())
			rep.Add(a.harness.RunLine(cmd.Context(), strings.Join(args, " ")))
			return a.finish(cmd, rep)
		},
	}
}

func newSuiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suite <file>",
		Short: "run a test suite",
		Long:  "suite runs every \"description { commands }\" block of a file and reports one verdict per block.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			tests, err := script.ReadSuite(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			rep := report.New(a.clock.Now())
			runErr := a.harness.RunSuite(cmd.Context(), tests, rep)
			return errors.Join(runErr, a.finish(cmd, rep))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// finish prints the summary, saves the results file and turns a failing
// run into an error.
func (a *app) finish(cmd *cobra.Command, rep *report.Report) error {
	fmt.Fprintln(cmd.OutOrStdout(), rep.Summary())
	if path, _ := cmd.Flags().GetString("results"); path != "" {
		if err := rep.Save(path); err != nil {
			return err
		}
	}
	if rep.Verdict() == validate.Fail {
		return errTestsFailed
	}
	return nil
}
