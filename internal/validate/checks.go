package validate

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/monitoring"
)

const nanosPerMilli = float64(time.Millisecond)

// counter is the state shared by the streaming checks.
type counter struct {
	n      int
	sum    float64
	failed int
	last   time.Time
}

func (c *counter) Count() int { return c.n }

func noData() Outcome { return failf("no data received") }

// frequency measures the rate at which records arrive.
type frequency struct {
	timestamped
	limits Limits
}

func (*frequency) Kind() Kind { return Frequency }

func (*frequency) NewAccumulator(Target) Accumulator { return &counter{} }

func (*frequency) Process(_ Target, acc Accumulator, smp Sample) {
	c := acc.(*counter)
	if !c.last.IsZero() {
		c.sum += float64(smp.ReadAt.Sub(c.last))
		c.n++
	}
	c.last = smp.ReadAt
}

func (f *frequency) Compute(t Target, acc Accumulator) Outcome {
	c := acc.(*counter)
	if c.n == 0 || c.sum <= 0 {
		return noData()
	}
	mean := c.sum / float64(c.n)
	measured := 1e9 / mean
	out := Outcome{
		Verdict:  Pass,
		Measured: measured,
		Details: []string{fmt.Sprintf("%s: measured %.3f Hz over %d intervals, expected %.3f Hz",
			t.Sensor.Tag, measured, c.n, t.Attrs.Frequency)},
	}
	if math.Abs(measured-t.Attrs.Frequency) > t.Attrs.Frequency*f.limits.FrequencyTolerance {
		out.Verdict = Fail
	}
	return out
}

// sampleDifference compares the device timestamp spacing with the
// period implied by the rate.
type sampleDifference struct {
	timestamped
	average bool
}

func (s *sampleDifference) Kind() Kind {
	if s.average {
		return SampleAverageDifference
	}
	return SampleDifference
}

func (*sampleDifference) NewAccumulator(Target) Accumulator { return &counter{} }

func (s *sampleDifference) Process(t Target, acc Accumulator, smp Sample) {
	c := acc.(*counter)
	if smp.Previous < 0 {
		return
	}
	spacing := float64(smp.Timestamp-smp.Previous) / nanosPerMilli
	c.n++
	if s.average {
		c.sum += spacing
		return
	}
	diff := math.Abs(spacing - 1000/t.Attrs.Frequency)
	c.sum += diff
	if diff > t.Attrs.MaxDelayMillis() {
		c.failed++
		monitoring.Debugf("%s: sample spacing %.3f ms is %.3f ms off", t.Sensor.Tag, spacing, diff)
	}
}

func (s *sampleDifference) Compute(t Target, acc Accumulator) Outcome {
	c := acc.(*counter)
	if c.n == 0 {
		return noData()
	}
	expected := 1000 / t.Attrs.Frequency
	mean := c.sum / float64(c.n)
	if s.average {
		out := Outcome{Verdict: Pass, Measured: mean, Details: []string{fmt.Sprintf(
			"%s: average spacing %.3f ms, expected %.3f ms, limit %.0f ms",
			t.Sensor.Tag, mean, expected, t.Attrs.MaxDelayMillis())}}
		if math.Abs(mean-expected) > t.Attrs.MaxDelayMillis() {
			out.Verdict = Fail
		}
		return out
	}
	out := Outcome{Verdict: Pass, Measured: mean, Details: []string{fmt.Sprintf(
		"%s: %d of %d spacings off by more than %.0f ms from %.3f ms",
		t.Sensor.Tag, c.failed, c.n, t.Attrs.MaxDelayMillis(), expected)}}
	if c.failed > 0 {
		out.Verdict = Fail
	}
	return out
}

// clientDelay measures how far the wall clock read time trails the device
// timestamp.
type clientDelay struct {
	timestamped
	average bool
}

func (d *clientDelay) Kind() Kind {
	if d.average {
		return ClientAverageDelay
	}
	return ClientDelay
}

func (*clientDelay) NewAccumulator(Target) Accumulator { return &counter{} }

func (d *clientDelay) Process(t Target, acc Accumulator, smp Sample) {
	c := acc.(*counter)
	delay := math.Abs(float64(smp.ReadAt.UnixNano()-smp.Timestamp)) / nanosPerMilli
	c.n++
	c.sum += delay
	if !d.average && delay > t.Attrs.MaxDelayMillis() {
		c.failed++
		monitoring.Debugf("%s: client delay %.3f ms", t.Sensor.Tag, delay)
	}
}

func (d *clientDelay) Compute(t Target, acc Accumulator) Outcome {
	c := acc.(*counter)
	if c.n == 0 {
		return noData()
	}
	mean := c.sum / float64(c.n)
	out := Outcome{Verdict: Pass, Measured: mean}
	if d.average {
		out.Details = []string{fmt.Sprintf("%s: average client delay %.3f ms, limit %.0f ms",
			t.Sensor.Tag, mean, t.Attrs.MaxDelayMillis())}
		if mean > t.Attrs.MaxDelayMillis() {
			out.Verdict = Fail
		}
		return out
	}
	out.Details = []string{fmt.Sprintf("%s: %d of %d samples delayed more than %.0f ms",
		t.Sensor.Tag, c.failed, c.n, t.Attrs.MaxDelayMillis())}
	if c.failed > 0 {
		out.Verdict = Fail
	}
	return out
}

// series keeps every value it is handed.
type series struct {
	values [][]float64
}

func (s *series) Count() int { return len(s.values) }

// jitter is the coefficient of variation of device timestamp intervals.
type jitter struct {
	timestamped
	limits Limits
}

func (*jitter) Kind() Kind { return Jitter }

func (*jitter) NewAccumulator(Target) Accumulator { return &series{} }

func (*jitter) Process(_ Target, acc Accumulator, smp Sample) {
	s := acc.(*series)
	s.values = append(s.values, []float64{float64(smp.Timestamp)})
}

func (j *jitter) Compute(t Target, acc Accumulator) Outcome {
	s := acc.(*series)
	if len(s.values) < 2 {
		return noData()
	}
	intervals := make([]float64, len(s.values)-1)
	for i := 1; i < len(s.values); i++ {
		intervals[i-1] = (s.values[i][0] - s.values[i-1][0]) / nanosPerMilli
	}
	mean, std := stat.PopMeanStdDev(intervals, nil)
	if mean <= 0 {
		return failf("%s: timestamps do not advance", t.Sensor.Tag)
	}
	cv := std / mean * 100
	out := Outcome{
		Verdict:   Pass,
		Measured:  cv,
		Intervals: intervals,
		Details: []string{fmt.Sprintf("%s: jitter %.3f%% (mean interval %.3f ms, deviation %.3f ms), limit %.1f%%",
			t.Sensor.Tag, cv, mean, std, j.limits.MaxJitterPercent)},
	}
	if cv > j.limits.MaxJitterPercent {
		out.Verdict = Fail
	}
	return out
}

// dispersion bounds the per channel standard deviation of a sensor at
// rest.
type dispersion struct {
	limits Limits
}

func (*dispersion) Kind() Kind { return Dispersion }

func (d *dispersion) Applicable(s *iio.Sensor) error {
	if _, ok := d.limits.DispersionBounds[s.Type]; !ok {
		return fmt.Errorf("%w: no deviation bound for %s sensors", ErrNotApplicable, s.Type)
	}
	return nil
}

func (*dispersion) NewAccumulator(Target) Accumulator { return &series{} }

func (*dispersion) Process(_ Target, acc Accumulator, smp Sample) {
	s := acc.(*series)
	s.values = append(s.values, append([]float64(nil), smp.Values...))
}

func (d *dispersion) Compute(t Target, acc Accumulator) Outcome {
	s := acc.(*series)
	if len(s.values) == 0 {
		return noData()
	}
	bound := d.limits.DispersionBounds[t.Sensor.Type]
	start := int(float64(len(s.values)) * d.limits.WarmupFraction)
	kept := s.values[start:]

	out := Outcome{Verdict: Pass}
	for ch := 0; ch < t.Sensor.NumChannels(); ch++ {
		col := make([]float64, 0, len(kept))
		for _, v := range kept {
			if ch < len(v) {
				col = append(col, v[ch])
			}
		}
		var std float64
		if len(col) >= 2 {
			std = stat.StdDev(col, nil)
		}
		out.Measured = math.Max(out.Measured, std)
		out.Details = append(out.Details, fmt.Sprintf("%s channel %s: deviation %.6f over %d samples, limit %.6f",
			t.Sensor.Tag, t.Sensor.Channels[ch].Name, std, len(col), bound))
		if std > bound {
			out.Verdict = Fail
		}
	}
	return out
}
