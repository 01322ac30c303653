package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorcheck/internal/validate"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		in   []validate.Verdict
		want validate.Verdict
	}{
		{"empty", nil, validate.Pass},
		{"all pass", []validate.Verdict{validate.Pass, validate.Pass}, validate.Pass},
		{"skip beats pass", []validate.Verdict{validate.Pass, validate.Skip}, validate.Skip},
		{"fail beats skip", []validate.Verdict{validate.Skip, validate.Fail, validate.Pass}, validate.Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.in...))
		})
	}
}

func sampleReport() *Report {
	r := New(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	r.Add(&Test{
		Description: "accelerometer rate",
		Commands:    []string{"check_freq accel freq 50 duration 10"},
		Sensors: []SensorLine{{
			Tag: "accel", Check: "frequency", Rate: 50, Samples: 499,
			Verdict: validate.Pass, Details: []string{"accel: measured 50.000 Hz"},
		}},
	})
	r.Add(&Test{
		Description: "light jitter",
		Commands:    []string{"jitter illuminance"},
		Sensors:     []SensorLine{{Tag: "illuminance", Check: "jitter", Verdict: validate.Skip}},
	})
	r.Add(&Test{
		Description: "broken activate",
		Commands:    []string{"activate magn"},
		Errors:      []string{"unknown sensor: magn"},
	})
	return r
}

func TestReport(t *testing.T) {
	r := sampleReport()
	passed, failed, skipped := r.Counts()
	assert.Equal(t, []int{1, 1, 1}, []int{passed, failed, skipped})
	assert.Equal(t, validate.Fail, r.Verdict())

	summary := r.Summary()
	assert.Contains(t, summary, r.ID.String())
	assert.Contains(t, summary, "accelerometer rate")
	assert.Contains(t, summary, "1 passed, 1 failed, 1 skipped")

	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "run "+r.ID.String()+" started 2026-03-01T12:00:00Z")
	assert.Contains(t, out, "$ check_freq accel freq 50 duration 10")
	assert.Contains(t, out, "[passed] accel frequency")
	assert.Contains(t, out, "error: unknown sensor: magn")
	assert.Contains(t, out, "broken activate: failed")
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.txt")
	r := sampleReport()
	require.NoError(t, r.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "light jitter: skipped")
}

func TestPlotIntervals(t *testing.T) {
	dir := t.TempDir()
	intervals := make([]float64, 200)
	for i := range intervals {
		intervals[i] = 20 + float64(i%5)*0.1
	}
	file, err := PlotIntervals(dir, "accel", intervals)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "accel_intervals.png"), file)
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	file, err = PlotIntervals(dir, "../accel x", intervals)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "accel_x_intervals.png"), file)

	_, err = PlotIntervals(dir, "empty", nil)
	assert.Error(t, err)
}
