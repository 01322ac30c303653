// Package harness executes parsed commands against the discovered sensors
// and records their verdicts.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/banshee-data/sensorcheck/internal/acquire"
	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/rate"
	"github.com/banshee-data/sensorcheck/internal/report"
	"github.com/banshee-data/sensorcheck/internal/script"
	"github.com/banshee-data/sensorcheck/internal/validate"
)

const (
	DefaultDuration       = 10 * time.Second
	DefaultJitterDuration = 20 * time.Second
)

// Harness owns the sensor table for the life of the process.
type Harness struct {
	Table   *iio.Table
	Engine  *acquire.Engine
	Control *iio.Controller
	Rates   *rate.Negotiator

	// Out receives listings.
	Out io.Writer
	// Duration bounds check commands that name none; JitterDuration does
	// the same for jitter and standard deviation.
	Duration       time.Duration
	JitterDuration time.Duration
	// PlotDir, when set, receives interval histograms of jitter runs.
	PlotDir string
}

// New wires a harness around an engine.
func New(e *acquire.Engine, out io.Writer) *Harness {
	return &Harness{
		Table:          e.Table,
		Engine:         e,
		Control:        e.Control,
		Rates:          e.Rates,
		Out:            out,
		Duration:       DefaultDuration,
		JitterDuration: DefaultJitterDuration,
	}
}

// RunLine parses and executes one command as its own test.
func (h *Harness) RunLine(ctx context.Context, line string) *report.Test {
	test := &report.Test{Description: line}
	h.runInto(ctx, test, line)
	return test
}

// RunSuite executes every suite test in order into rep. It stops early
// only when ctx is cancelled.
func (h *Harness) RunSuite(ctx context.Context, tests []script.Test, rep *report.Report) error {
	for _, st := range tests {
		if err := ctx.Err(); err != nil {
			return err
		}
		monitoring.Logf("test: %s", st.Description)
		test := &report.Test{Description: st.Description}
		for _, line := range st.Lines {
			h.runInto(ctx, test, line)
		}
		monitoring.Logf("test %s: %s", st.Description, test.Verdict())
		rep.Add(test)
	}
	return nil
}

func (h *Harness) runInto(ctx context.Context, test *report.Test, line string) {
	test.Commands = append(test.Commands, line)
	cmd, err := script.Parse(line)
	if err != nil {
		test.Errors = append(test.Errors, err.Error())
		monitoring.Errorf("%v", err)
		return
	}
	if err := h.Exec(ctx, cmd, test); err != nil {
		test.Errors = append(test.Errors, fmt.Sprintf("%s: %v", cmd.Verb, err))
		monitoring.Errorf("%s: %v", cmd.Verb, err)
	}
}

// Exec runs cmd, appending per-sensor verdicts to test. The returned error
// is a failure of the command as a whole.
func (h *Harness) Exec(ctx context.Context, cmd script.Command, test *report.Test) error {
	switch cmd.Verb {
	case script.List:
		return h.listSensors()
	case script.ListTriggers:
		return h.listTriggers()
	case script.Clean:
		return h.Control.CleanUp(h.Table)
	case script.ActivateAllSensors:
		return h.Control.ActivateAll(h.Table, true)
	case script.DeactivateAllSensors:
		return h.Control.ActivateAll(h.Table, false)
	case script.ActivateDeactivateAll:
		return h.Control.ActivateDeactivateAll(h.Table, cmd.Counter)
	}

	sel, missing := cmd.Selection(h.Table)
	for _, tag := range missing {
		test.Sensors = append(test.Sensors, report.SensorLine{
			Tag: tag, Check: cmd.Verb.String(), Verdict: validate.Skip,
			Details: []string{fmt.Sprintf("sensor %s was not discovered", tag)},
		})
	}
	if sel.Len() == 0 {
		if len(missing) == 0 {
			return fmt.Errorf("%w: no sensor named", script.ErrSyntax)
		}
		return nil
	}

	if kind, ok := cmd.Verb.Check(); ok {
		return h.check(ctx, kind, cmd, sel, test)
	}

	sel.Each(func(slot int, attrs iio.TimeAttributes) bool {
		s := h.Table.At(slot)
		line := report.SensorLine{Tag: s.Tag, Check: cmd.Verb.String(), Rate: s.DataRate}
		err := h.control(cmd, s, attrs)
		switch {
		case errors.Is(err, iio.ErrPollMode):
			line.Verdict = validate.Skip
			line.Details = []string{err.Error()}
		case err != nil:
			line.Verdict = validate.Fail
			line.Details = []string{err.Error()}
			monitoring.Errorf("%s %s: %v", cmd.Verb, s.Tag, err)
		default:
			line.Verdict = validate.Pass
			line.Rate = s.DataRate
		}
		test.Sensors = append(test.Sensors, line)
		return true
	})
	return nil
}

// control runs a per-sensor control verb.
func (h *Harness) control(cmd script.Command, s *iio.Sensor, attrs iio.TimeAttributes) error {
	switch cmd.Verb {
	case script.Activate:
		return h.Control.Activate(s, true)
	case script.Deactivate:
		return h.Control.Activate(s, false)
	case script.ActivateDeactivate:
		return h.Control.ActivateDeactivate(s, cmd.Counter)
	case script.CheckChannels:
		return h.Control.CheckChannels(s)
	case script.Set:
		return h.Rates.Set(s, attrs.Frequency)
	}
	return fmt.Errorf("%w: %s", script.ErrUnknownVerb, cmd.Verb)
}

func (h *Harness) check(ctx context.Context, kind validate.Kind, cmd script.Command, sel *iio.Selection, test *report.Test) error {
	duration := cmd.Duration
	if duration <= 0 {
		duration = h.Duration
		if kind.UsesLongDuration() {
			duration = h.JitterDuration
		}
	}
	monitoring.Debugf("%s on %d sensors for %s", kind, sel.Len(), duration)

	results, err := h.Engine.Run(ctx, kind, sel, duration)
	for _, res := range results {
		test.Sensors = append(test.Sensors, report.SensorLine{
			Tag:     res.Sensor.Tag,
			Check:   kind.String(),
			Rate:    res.Attrs.Frequency,
			Samples: res.Samples,
			Verdict: res.Outcome.Verdict,
			Details: res.Outcome.Details,
		})
		for _, d := range res.Outcome.Details {
			monitoring.Logf("[%s] %s", res.Outcome.Verdict, d)
		}
		if h.PlotDir != "" && len(res.Outcome.Intervals) > 0 {
			name := fmt.Sprintf("%s_%s", res.Sensor.Tag, kind)
			if file, err := report.PlotIntervals(h.PlotDir, name, res.Outcome.Intervals); err != nil {
				monitoring.Errorf("plot %s: %v", name, err)
			} else {
				monitoring.Debugf("wrote %s", file)
			}
		}
	}
	if errors.Is(err, acquire.ErrNoStreams) {
		// Every selected sensor already carries its own verdict.
		return nil
	}
	return err
}

func (h *Harness) listSensors() error {
	t := table.NewWriter()
	t.SetOutputMirror(h.Out)
	t.AppendHeader(table.Row{"Slot", "Sensor", "Driver", "Device", "Mode", "Rate (Hz)", "Trigger", "Channels"})
	found := h.Table.Discovered()
	for _, s := range found {
		t.AppendRow(table.Row{s.Slot, s.Tag, s.InternalName, s.DevNum, s.Mode, s.DataRate, s.InitTrigger, s.NumChannels()})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d found", len(found))})
	t.Render()
	return nil
}

func (h *Harness) listTriggers() error {
	t := table.NewWriter()
	t.SetOutputMirror(h.Out)
	t.AppendHeader(table.Row{"Sensor", "Device", "Trigger"})
	for _, s := range h.Table.Discovered() {
		for _, trig := range s.Triggers {
			t.AppendRow(table.Row{s.Tag, s.DevNum, trig})
		}
	}
	t.Render()
	return nil
}
