// Package rate negotiates sensor sampling frequencies against what the
// hardware supports and what the compatibility requirements ask for.
package rate

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
)

var (
	// ErrInvalidRate rejects non-positive requests.
	ErrInvalidRate = errors.New("invalid rate")
	// ErrNoRates means no usable supported rate was found.
	ErrNoRates = errors.New("no supported rate")
	// ErrVerify means a rate did not read back as written.
	ErrVerify = errors.New("rate not applied")
)

// tolerance is how close a supported rate must be to count as the request.
const tolerance = 0.01

type compliance struct{ must, should float64 }

var complianceRates = map[iio.SensorType]compliance{
	iio.Accelerometer: {100, 200},
	iio.Gyroscope:     {200, 200},
	iio.MagneticField: {10, 50},
	iio.Temperature:   {1, 2},
}

// ComplianceRate returns the minimum (must) or recommended (should) rate
// for a sensor type, in Hz.
func ComplianceRate(t iio.SensorType, must bool) float64 {
	c, ok := complianceRates[t]
	if !ok {
		return 1
	}
	if must {
		return c.must
	}
	return c.should
}

// Choice is the outcome of rate selection. NoChange means the sensor is
// already running at the requested rate and nothing must be written.
// Simulated means the harness paces a polled sensor that has no rate
// attribute at all.
type Choice struct {
	Rate      float64
	NoChange  bool
	Simulated bool
}

func (c Choice) String() string {
	switch {
	case c.NoChange:
		return "no change"
	case c.Simulated:
		return fmt.Sprintf("%g Hz (simulated)", c.Rate)
	}
	return fmt.Sprintf("%g Hz", c.Rate)
}

// Negotiator reads and writes sampling frequencies.
type Negotiator struct {
	FS      sysfs.FS
	Control *iio.Controller
}

// CurrentRate reads the sensor's rate attribute, falling back to the
// device-wide one.
func (n *Negotiator) CurrentRate(s *iio.Sensor) (float64, error) {
	if v, err := sysfs.ReadFloat(n.FS, iio.SensorRatePath(s)); err == nil {
		return v, nil
	}
	return sysfs.ReadFloat(n.FS, iio.DeviceRatePath(s.DevNum))
}

// SelectClosest maps requested onto a supported rate, never exceeding the
// type's compliance bound.
//
// Supported rates are scanned in ascending order. A rate equal to the
// bound wins outright; the rate before one above the bound wins; otherwise
// the first rate above or within tolerance of the request wins. When none
// does, the highest rate is used.
func (n *Negotiator) SelectClosest(s *iio.Sensor, requested float64) (Choice, error) {
	if requested <= 0 {
		return Choice{}, fmt.Errorf("%w: %g Hz for %s", ErrInvalidRate, requested, s.Tag)
	}
	current, err := n.CurrentRate(s)
	if err != nil {
		return Choice{}, fmt.Errorf("read rate of %s: %w", s.Tag, err)
	}
	if current == requested {
		return Choice{Rate: current, NoChange: true}, nil
	}

	available, err := sysfs.ReadFloatList(n.FS, iio.AvailableRatesPath(s.DevNum))
	if err != nil {
		return Choice{}, fmt.Errorf("read available rates of %s: %w", s.Tag, err)
	}
	if len(available) == 0 {
		return Choice{}, fmt.Errorf("%w: %s lists none", ErrNoRates, s.Tag)
	}
	bound := ComplianceRate(s.Type, false)

	chosen, err := closest(available, requested, bound)
	if err != nil {
		return Choice{}, fmt.Errorf("%w: %s %v", ErrNoRates, s.Tag, err)
	}
	if chosen <= 0 {
		return Choice{}, fmt.Errorf("%w: %s selected %g Hz", ErrNoRates, s.Tag, chosen)
	}
	return Choice{Rate: chosen}, nil
}

func closest(available []float64, requested, bound float64) (float64, error) {
	prev := math.NaN()
	for _, candidate := range available {
		if candidate == bound {
			return candidate, nil
		}
		if candidate > bound {
			if math.IsNaN(prev) {
				return 0, fmt.Errorf("lowest rate %g Hz exceeds %g Hz", candidate, bound)
			}
			return prev, nil
		}
		if requested < candidate || math.Abs(requested-candidate) <= tolerance {
			return candidate, nil
		}
		prev = candidate
	}
	return prev, nil
}

// Apply writes the rate selected for requested. An enabled triggered
// sensor is stopped around the write and restarted afterwards; a high
// resolution timer trigger is set to requested. Nothing is rolled back on
// failure.
func (n *Negotiator) Apply(s *iio.Sensor, requested float64) (Choice, error) {
	if s.Mode == iio.ModePoll && !n.FS.Exists(iio.SensorRatePath(s)) && !n.FS.Exists(iio.DeviceRatePath(s.DevNum)) {
		// Polled sensors without a rate attribute are paced by the harness.
		if requested <= 0 {
			return Choice{}, fmt.Errorf("%w: %g Hz for %s", ErrInvalidRate, requested, s.Tag)
		}
		s.DataRate = requested
		return Choice{Rate: requested, Simulated: true}, nil
	}

	choice, err := n.SelectClosest(s, requested)
	if err != nil {
		return Choice{}, err
	}

	enabled := false
	if s.Mode == iio.ModeTrigger {
		if enabled, err = n.Control.BufferEnabled(s); err != nil {
			return choice, err
		}
		if enabled {
			if err := n.Control.Activate(s, false); err != nil {
				return choice, err
			}
		}
	}

	if s.HRTrigger >= 0 {
		hr, err := sysfs.ReadFloat(n.FS, iio.TriggerRatePath(s.HRTrigger))
		if err != nil {
			return choice, fmt.Errorf("read trigger rate of %s: %w", s.Tag, err)
		}
		if hr != requested {
			if err := sysfs.WriteFloat(n.FS, iio.TriggerRatePath(s.HRTrigger), requested); err != nil {
				return choice, fmt.Errorf("write trigger rate of %s: %w", s.Tag, err)
			}
		}
	}

	if choice.NoChange {
		s.DataRate = choice.Rate
	} else {
		path := iio.SensorRatePath(s)
		if !n.FS.Exists(path) {
			path = iio.DeviceRatePath(s.DevNum)
		}
		if err := sysfs.WriteFloat(n.FS, path, choice.Rate); err != nil {
			return choice, fmt.Errorf("write rate of %s: %w", s.Tag, err)
		}
		s.DataRate = choice.Rate
		monitoring.Debugf("%s rate set to %g Hz (requested %g Hz)", s.Tag, choice.Rate, requested)
	}

	if enabled {
		if err := n.Control.Activate(s, true); err != nil {
			return choice, err
		}
	}
	return choice, nil
}

// Set applies requested and reads the rates back to confirm them.
func (n *Negotiator) Set(s *iio.Sensor, requested float64) error {
	choice, err := n.Apply(s, requested)
	if err != nil {
		return err
	}
	if choice.Simulated {
		return nil
	}

	current, err := n.CurrentRate(s)
	if err != nil {
		return fmt.Errorf("read back rate of %s: %w", s.Tag, err)
	}
	if current != choice.Rate {
		return fmt.Errorf("%w: %s reads %g Hz, want %g Hz", ErrVerify, s.Tag, current, choice.Rate)
	}
	if s.HRTrigger >= 0 {
		hr, err := sysfs.ReadFloat(n.FS, iio.TriggerRatePath(s.HRTrigger))
		if err != nil {
			return fmt.Errorf("read back trigger rate of %s: %w", s.Tag, err)
		}
		if hr != requested {
			return fmt.Errorf("%w: %s trigger reads %g Hz, want %g Hz", ErrVerify, s.Tag, hr, requested)
		}
	}
	monitoring.Debugf("%s runs at %g Hz", s.Tag, current)
	return nil
}
