package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorcheck/internal/iio"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func accelTarget(rate float64, maxDelay time.Duration) Target {
	s := iio.Catalog()[0]
	s.Mode = iio.ModeTrigger
	s.Discovered = true
	return Target{Sensor: s, Attrs: iio.TimeAttributes{Frequency: rate, MaxDelay: maxDelay}}
}

// stream builds samples whose device timestamps follow intervals (ms) and
// which are read lag after being stamped.
func stream(intervals []float64, lag time.Duration) []Sample {
	out := make([]Sample, 0, len(intervals)+1)
	ts := epoch.UnixNano()
	prev := int64(-1)
	for i := 0; i <= len(intervals); i++ {
		if i > 0 {
			ts += int64(intervals[i-1] * float64(time.Millisecond))
		}
		out = append(out, Sample{
			Timestamp: ts,
			Previous:  prev,
			ReadAt:    time.Unix(0, ts).Add(lag),
			Values:    []float64{0, 0, 9.81},
		})
		prev = ts
	}
	return out
}

func uniform(n int, ms float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = ms
	}
	return out
}

func run(t *testing.T, k Kind, l Limits, tgt Target, samples []Sample) Outcome {
	t.Helper()
	v, err := New(k, l)
	require.NoError(t, err)
	require.Equal(t, k, v.Kind())
	require.NoError(t, v.Applicable(tgt.Sensor))
	acc := v.NewAccumulator(tgt)
	for _, smp := range samples {
		v.Process(tgt, acc, smp)
	}
	return v.Compute(tgt, acc)
}

func TestTimestampChecks(t *testing.T) {
	jittery := make([]float64, 100)
	for i := range jittery {
		jittery[i] = 10
		if i%2 == 1 {
			jittery[i] = 30
		}
	}
	withGap := uniform(50, 20)
	withGap[25] = 40

	tests := []struct {
		name    string
		kind    Kind
		target  Target
		samples []Sample
		want    Verdict
	}{
		{"frequency on rate", Frequency, accelTarget(50, 500*time.Millisecond), stream(uniform(100, 20), time.Millisecond), Pass},
		{"frequency off rate", Frequency, accelTarget(100, 500*time.Millisecond), stream(uniform(100, 20), time.Millisecond), Fail},
		{"frequency single sample", Frequency, accelTarget(50, 500*time.Millisecond), stream(nil, 0), Fail},
		{"spacing exact", SampleDifference, accelTarget(50, 5*time.Millisecond), stream(uniform(50, 20), 0), Pass},
		{"spacing gap", SampleDifference, accelTarget(50, 5*time.Millisecond), stream(withGap, 0), Fail},
		{"average spacing tolerates gap", SampleAverageDifference, accelTarget(50, 5*time.Millisecond), stream(withGap, 0), Pass},
		{"average spacing wrong rate", SampleAverageDifference, accelTarget(10, 5*time.Millisecond), stream(uniform(50, 20), 0), Fail},
		{"client delay under bound", ClientDelay, accelTarget(50, 5*time.Millisecond), stream(uniform(20, 20), 2*time.Millisecond), Pass},
		{"client delay over bound", ClientDelay, accelTarget(50, time.Millisecond), stream(uniform(20, 20), 2*time.Millisecond), Fail},
		{"average client delay", ClientAverageDelay, accelTarget(50, 5*time.Millisecond), stream(uniform(20, 20), 2*time.Millisecond), Pass},
		{"average client delay over bound", ClientAverageDelay, accelTarget(50, time.Millisecond), stream(uniform(20, 20), 3*time.Millisecond), Fail},
		{"steady intervals", Jitter, accelTarget(50, 0), stream(uniform(100, 20), 0), Pass},
		{"alternating intervals", Jitter, accelTarget(50, 0), stream(jittery, 0), Fail},
		{"one interval at double the mean", Jitter, accelTarget(50, 0), stream(withGap, 0), Fail},
		{"jitter without data", Jitter, accelTarget(50, 0), nil, Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, tt.kind, DefaultLimits(), tt.target, tt.samples)
			assert.Equal(t, tt.want, out.Verdict, out.Details)
			assert.NotEmpty(t, out.Details)
		})
	}
}

func TestFrequencyMeasured(t *testing.T) {
	out := run(t, Frequency, DefaultLimits(), accelTarget(50, 0), stream(uniform(100, 20), 0))
	assert.InDelta(t, 50, out.Measured, 1e-9)
}

func TestJitterCoefficient(t *testing.T) {
	intervals := []float64{10, 30, 10, 30}
	out := run(t, Jitter, DefaultLimits(), accelTarget(50, 0), stream(intervals, 0))
	// Population deviation 10 over mean 20.
	assert.InDelta(t, 50, out.Measured, 1e-6)
	assert.Len(t, out.Intervals, 4)
	assert.InDelta(t, 30, out.Intervals[1], 1e-6)
}

func TestJitterLimitConfigurable(t *testing.T) {
	l := DefaultLimits()
	l.MaxJitterPercent = 60
	intervals := []float64{10, 30, 10, 30}
	out := run(t, Jitter, l, accelTarget(50, 0), stream(intervals, 0))
	assert.Equal(t, Pass, out.Verdict)
}

func TestTimestampChecksSkipPolledSensors(t *testing.T) {
	s := iio.Catalog()[4]
	s.Mode = iio.ModePoll
	for _, k := range []Kind{Frequency, SampleDifference, SampleAverageDifference, ClientDelay, ClientAverageDelay, Jitter} {
		v, err := New(k, DefaultLimits())
		require.NoError(t, err)
		assert.ErrorIs(t, v.Applicable(s), ErrNotApplicable, k.String())
	}
}

func restingSamples(n int, noise float64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		d := noise
		if i%2 == 1 {
			d = -noise
		}
		out[i] = Sample{Previous: -1, Values: []float64{d, 0.2 + d, 9.81}}
	}
	return out
}

func TestDispersion(t *testing.T) {
	t.Run("constant channels", func(t *testing.T) {
		out := run(t, Dispersion, DefaultLimits(), accelTarget(0, 0), restingSamples(100, 0))
		assert.Equal(t, Pass, out.Verdict)
		assert.Len(t, out.Details, 3)
		assert.Zero(t, out.Measured)
	})

	t.Run("noisy channels", func(t *testing.T) {
		out := run(t, Dispersion, DefaultLimits(), accelTarget(0, 0), restingSamples(100, 0.1))
		assert.Equal(t, Fail, out.Verdict)
		assert.Greater(t, out.Measured, 0.05)
	})

	t.Run("warm up discarded", func(t *testing.T) {
		samples := restingSamples(100, 0)
		for i := 0; i < 10; i++ {
			samples[i].Values = []float64{5, -5, 20}
		}
		out := run(t, Dispersion, DefaultLimits(), accelTarget(0, 0), samples)
		assert.Equal(t, Pass, out.Verdict, out.Details)
	})

	t.Run("single sample", func(t *testing.T) {
		out := run(t, Dispersion, DefaultLimits(), accelTarget(0, 0), restingSamples(1, 0.3))
		assert.Equal(t, Pass, out.Verdict)
	})

	t.Run("no samples", func(t *testing.T) {
		out := run(t, Dispersion, DefaultLimits(), accelTarget(0, 0), nil)
		assert.Equal(t, Fail, out.Verdict)
		assert.Equal(t, []string{"no data received"}, out.Details)
	})

	t.Run("polled magnetometer", func(t *testing.T) {
		s := iio.Catalog()[2]
		s.Mode = iio.ModePoll
		samples := restingSamples(50, 0.001)
		out := run(t, Dispersion, DefaultLimits(), Target{Sensor: s}, samples)
		assert.Equal(t, Pass, out.Verdict)
	})

	t.Run("unbounded type skipped", func(t *testing.T) {
		v, err := New(Dispersion, DefaultLimits())
		require.NoError(t, err)
		assert.ErrorIs(t, v.Applicable(iio.Catalog()[4]), ErrNotApplicable)
	})
}

func TestNew(t *testing.T) {
	_, err := New(Kind(42), DefaultLimits())
	assert.Error(t, err)
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, "jitter", Jitter.String())
	assert.True(t, Dispersion.UsesLongDuration())
	assert.True(t, Jitter.UsesLongDuration())
	assert.False(t, Frequency.UsesLongDuration())
	assert.Equal(t, "skipped", Skip.String())
}
