// Package validate holds the statistical checks run over an acquired
// sample stream. Every check accumulates samples one at a time and renders
// a verdict once the run is over.
package validate

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sensorcheck/internal/iio"
)

// ErrNotApplicable marks a check that is not defined for a sensor. It
// yields a Skip verdict rather than a failure.
var ErrNotApplicable = errors.New("check not applicable")

// Kind enumerates the checks.
type Kind int

const (
	Frequency Kind = iota + 1
	SampleDifference
	SampleAverageDifference
	ClientDelay
	ClientAverageDelay
	Jitter
	Dispersion
)

var kindNames = map[Kind]string{
	Frequency:               "frequency",
	SampleDifference:        "sample_timestamp_difference",
	SampleAverageDifference: "sample_timestamp_average_difference",
	ClientDelay:             "client_delay",
	ClientAverageDelay:      "client_average_delay",
	Jitter:                  "jitter",
	Dispersion:              "standard_deviation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// UsesLongDuration reports whether the check needs the longer default run
// to gather enough intervals or values.
func (k Kind) UsesLongDuration() bool {
	return k == Jitter || k == Dispersion
}

// Verdict is the terminal outcome of a check for one sensor.
type Verdict int

const (
	Pass Verdict = iota + 1
	Fail
	Skip
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "passed"
	case Fail:
		return "failed"
	case Skip:
		return "skipped"
	}
	return "unknown"
}

// Target is the sensor under test with the attributes it runs at. The
// frequency is the negotiated rate, not necessarily the requested one.
type Target struct {
	Sensor *iio.Sensor
	Attrs  iio.TimeAttributes
}

// Sample is one received record.
type Sample struct {
	// Timestamp is the device timestamp in ns; Previous is the one before
	// it or -1.
	Timestamp int64
	Previous  int64
	// ReadAt is the wall clock time the record was read.
	ReadAt time.Time
	Values []float64
}

// Outcome is a check's verdict with diagnostics.
type Outcome struct {
	Verdict  Verdict
	Measured float64
	Details  []string
	// Intervals are the inter-sample intervals in ms when the check
	// collected them.
	Intervals []float64
}

func failf(format string, v ...interface{}) Outcome {
	return Outcome{Verdict: Fail, Details: []string{fmt.Sprintf(format, v...)}}
}

// Accumulator is the per-sensor state of one check during a run.
type Accumulator interface {
	Count() int
}

// Validator is one check.
type Validator interface {
	Kind() Kind
	// Applicable returns an error wrapping ErrNotApplicable when s cannot
	// be checked.
	Applicable(s *iio.Sensor) error
	NewAccumulator(t Target) Accumulator
	Process(t Target, acc Accumulator, smp Sample)
	Compute(t Target, acc Accumulator) Outcome
}

// Limits are the pass thresholds.
type Limits struct {
	// FrequencyTolerance is the allowed relative error of the measured rate.
	FrequencyTolerance float64
	// MaxJitterPercent bounds the coefficient of variation of intervals.
	MaxJitterPercent float64
	// WarmupFraction of the dispersion samples is discarded.
	WarmupFraction float64
	// DispersionBounds are standard deviation limits per sensor type.
	DispersionBounds map[iio.SensorType]float64
}

// DefaultLimits returns the stock thresholds: 10% rate error, 3% jitter,
// 10% warm-up, 0.05 m/s² accelerometer and 0.5 µT (0.005 G) magnetometer
// deviation.
func DefaultLimits() Limits {
	return Limits{
		FrequencyTolerance: 0.1,
		MaxJitterPercent:   3,
		WarmupFraction:     0.1,
		DispersionBounds: map[iio.SensorType]float64{
			iio.Accelerometer: 0.05,
			iio.MagneticField: 0.5 / 100,
		},
	}
}

// New returns the validator for k.
func New(k Kind, l Limits) (Validator, error) {
	switch k {
	case Frequency:
		return &frequency{limits: l}, nil
	case SampleDifference:
		return &sampleDifference{average: false}, nil
	case SampleAverageDifference:
		return &sampleDifference{average: true}, nil
	case ClientDelay:
		return &clientDelay{average: false}, nil
	case ClientAverageDelay:
		return &clientDelay{average: true}, nil
	case Jitter:
		return &jitter{limits: l}, nil
	case Dispersion:
		return &dispersion{limits: l}, nil
	}
	return nil, fmt.Errorf("unknown check %v", k)
}

// timestamped is embedded by the checks that need device timestamps,
// which polled sensors do not provide.
type timestamped struct{}

func (timestamped) Applicable(s *iio.Sensor) error {
	if s.Mode == iio.ModePoll {
		return fmt.Errorf("%w: %s is a polling sensor", ErrNotApplicable, s.Tag)
	}
	return nil
}
