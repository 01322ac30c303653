// Package acquire runs a validator over the live sample streams of a set
// of sensors for a bounded time.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/rate"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
	"github.com/banshee-data/sensorcheck/internal/timeutil"
	"github.com/banshee-data/sensorcheck/internal/validate"
)

// ErrNoStreams is returned when no selected sensor could be streamed.
var ErrNoStreams = errors.New("no sensor streams to acquire from")

const (
	// DefaultTick is the longest single wait on the multiplexer.
	DefaultTick = 100 * time.Millisecond
	// DefaultSlack is how long trigger simulators outlive the run duration.
	DefaultSlack = 2 * time.Second
)

// State is the phase of a run.
type State int32

const (
	Idle State = iota
	Initializing
	Running
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Result is the outcome of a run for one selected sensor.
type Result struct {
	Sensor *iio.Sensor
	// Attrs are the attributes the sensor actually ran at.
	Attrs   iio.TimeAttributes
	Choice  rate.Choice
	Samples int
	Outcome validate.Outcome
	// Err is the error that failed the sensor, if any.
	Err error
}

// Engine drives acquisition runs. A run owns every sensor it streams from
// until it returns.
type Engine struct {
	FS      sysfs.FS
	Clock   timeutil.Clock
	Table   *iio.Table
	Control *iio.Controller
	Rates   *rate.Negotiator
	Limits  validate.Limits

	// Tick bounds a single wait on the multiplexer.
	Tick time.Duration
	// Slack keeps trigger simulators alive past the run duration.
	Slack time.Duration

	state atomic.Int32
}

// NewEngine returns an Engine over table with default timing and limits.
func NewEngine(fs sysfs.FS, clock timeutil.Clock, table *iio.Table) *Engine {
	ctl := iio.NewController(fs, clock)
	return &Engine{
		FS:      fs,
		Clock:   clock,
		Table:   table,
		Control: ctl,
		Rates:   &rate.Negotiator{FS: fs, Control: ctl},
		Limits:  validate.DefaultLimits(),
		Tick:    DefaultTick,
		Slack:   DefaultSlack,
	}
}

// State returns the phase of the current or last run.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	monitoring.Tracef("acquisition %s", s)
}

// stream is the run-scoped state of one registered sensor.
type stream struct {
	result *Result
	target validate.Target
	choice rate.Choice
	acc    validate.Accumulator
	device io.Closer
}

// Run streams every selected sensor for duration and returns one result
// per selected sensor in selection order. Sensors the validator does not
// apply to are skipped; a sensor whose setup or stream fails is failed
// without affecting the others.
func (e *Engine) Run(ctx context.Context, kind validate.Kind, sel *iio.Selection, duration time.Duration) ([]*Result, error) {
	v, err := validate.New(kind, e.Limits)
	if err != nil {
		return nil, err
	}
	e.setState(Initializing)
	defer e.setState(Done)

	mux := NewMux()
	streams := make(map[int]*stream)
	var order []int
	var results []*Result

	for _, slot := range sel.Slots() {
		attrs, _ := sel.Get(slot)
		s := e.Table.At(slot)
		res := &Result{Sensor: s, Attrs: attrs}
		results = append(results, res)

		st, err := e.open(v, s, attrs, duration, mux)
		switch {
		case errors.Is(err, validate.ErrNotApplicable):
			res.Outcome = validate.Outcome{Verdict: validate.Skip, Details: []string{err.Error()}}
		case err != nil:
			failResult(res, err)
		default:
			st.result = res
			res.Attrs, res.Choice = st.target.Attrs, st.choice
			streams[slot] = st
			order = append(order, slot)
		}
	}

	if len(streams) == 0 {
		mux.Stop()
		return results, multierr.Append(ErrNoStreams, mux.Wait())
	}

	e.setState(Running)
	runErr := e.loop(ctx, v, mux, streams, duration)

	e.setState(Draining)
	for _, slot := range order {
		st := streams[slot]
		if st.result.Err == nil {
			st.result.Outcome = v.Compute(st.target, st.acc)
		}
		st.result.Samples = st.acc.Count()
	}
	mux.Stop()
	var closeErr error
	for _, slot := range order {
		if c := streams[slot].device; c != nil {
			closeErr = multierr.Append(closeErr, c.Close())
		}
	}
	closeErr = multierr.Append(closeErr, mux.Wait())
	if closeErr != nil {
		monitoring.Errorf("closing sensor streams: %v", closeErr)
	}
	return results, runErr
}

func failResult(res *Result, err error) {
	res.Err = err
	res.Outcome = validate.Outcome{Verdict: validate.Fail, Details: []string{err.Error()}}
	monitoring.Errorf("%s: %v", res.Sensor.Tag, err)
}

// open prepares s and registers its stream with mux.
func (e *Engine) open(v validate.Validator, s *iio.Sensor, attrs iio.TimeAttributes, duration time.Duration, mux *Mux) (*stream, error) {
	if err := v.Applicable(s); err != nil {
		return nil, err
	}
	if s.Mode == iio.ModeTrigger && !s.HasSampleFormat() {
		return nil, fmt.Errorf("%s: %w", s.Tag, iio.ErrNoSampleFormat)
	}

	requested := attrs.Frequency
	if requested <= 0 {
		requested = rate.ComplianceRate(s.Type, false)
	}
	choice, err := e.Rates.Apply(s, requested)
	if err != nil {
		return nil, fmt.Errorf("set rate of %s: %w", s.Tag, err)
	}
	if s.DataRate <= 0 {
		return nil, fmt.Errorf("%s runs at %g Hz: %w", s.Tag, s.DataRate, rate.ErrInvalidRate)
	}
	attrs.Frequency = s.DataRate
	if attrs.MaxDelay <= 0 {
		attrs.MaxDelay = iio.DefaultMaxDelay
	}
	s.LastTimestamp = -1

	target := validate.Target{Sensor: s, Attrs: attrs}
	st := &stream{target: target, choice: choice, acc: v.NewAccumulator(target)}
	src := make(chan Signal)

	if s.Mode == iio.ModeTrigger {
		enabled, err := e.Control.BufferEnabled(s)
		if err != nil {
			return nil, err
		}
		if !enabled {
			if err := e.Control.Activate(s, true); err != nil {
				return nil, err
			}
		}
		dev, err := e.FS.OpenStream(iio.DeviceFile(s.DevNum))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.Tag, err)
		}
		st.device = dev
		mux.Go(pump(dev, s.SampleSize, e.Clock, src))
	} else {
		period := time.Duration(float64(time.Second) / s.DataRate)
		if period <= 0 {
			return nil, fmt.Errorf("%s: %g Hz has no tick period: %w", s.Tag, s.DataRate, rate.ErrInvalidRate)
		}
		mux.Go(simulate(period, duration+e.Slack, e.Clock, src))
	}
	mux.Subscribe(s.Slot, src)

	monitoring.Logf("%s streaming at %g Hz (%s)", s.Tag, s.DataRate, choice)
	return st, nil
}

// loop dispatches signals until the duration has elapsed, every stream
// has failed, or ctx is cancelled.
func (e *Engine) loop(ctx context.Context, v validate.Validator, mux *Mux, streams map[int]*stream, duration time.Duration) error {
	start := e.Clock.Now()
	tick := e.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	for mux.Len() > 0 {
		remaining := duration - e.Clock.Since(start)
		if remaining <= 0 {
			return nil
		}
		timer := e.Clock.NewTimer(min(tick, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		case sig := <-mux.Events():
			timer.Stop()
			if mux.Live(sig.Source) {
				e.handle(v, mux, streams[sig.Source], sig)
			}
		}
	}
	return nil
}

// handle feeds one signal to the stream's accumulator.
func (e *Engine) handle(v validate.Validator, mux *Mux, st *stream, sig Signal) {
	s := st.target.Sensor
	smp := validate.Sample{ReadAt: sig.ReadAt, Previous: -1}

	err := sig.Err
	if err == nil {
		if s.Mode == iio.ModeTrigger {
			smp.Previous = s.LastTimestamp
			smp.Timestamp, err = s.DecodeRecord(sig.Data)
		} else {
			err = iio.ReadPolled(e.FS, s)
			smp.Timestamp = sig.ReadAt.UnixNano()
		}
	}
	if err != nil {
		mux.Unsubscribe(s.Slot)
		failResult(st.result, fmt.Errorf("stream of %s: %w", s.Tag, err))
		return
	}
	smp.Values = s.Values()
	v.Process(st.target, st.acc, smp)
}
