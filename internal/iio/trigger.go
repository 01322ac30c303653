package iio

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
)

// TriggerSelector picks the trigger each triggered sensor is started with.
//
// Drivers usually register "<name>-dev<N>" for their own data-ready
// interrupt; a "<name>-hr-dev<N>" trigger is a high resolution timer whose
// rate follows the sensor's. Sensors without either fall back to the
// first trigger naming them, and finally to a new hrtimer created through
// configfs.
type TriggerSelector struct {
	FS          sysfs.FS
	MaxTriggers int
}

// Select scans triggerN entries and assigns InitTrigger to every
// discovered triggered sensor in t.
func (ts *TriggerSelector) Select(t *Table) error {
	maxTriggers := ts.MaxTriggers
	if maxTriggers <= 0 {
		maxTriggers = DefaultMaxTriggers
	}

	next := 0
	for ; next < maxTriggers; next++ {
		name, err := sysfs.ReadString(ts.FS, TriggerNamePath(next))
		if err != nil {
			break
		}
		ts.match(t, name, next)
	}

	var errs error
	for _, s := range t.Discovered() {
		if s.Mode != ModeTrigger {
			continue
		}
		switch {
		case s.implicitTrigger:
			s.InitTrigger = fmt.Sprintf("%s-dev%d", s.InternalName, s.DevNum)
		case len(s.Triggers) > 0:
			s.InitTrigger = s.Triggers[0]
		default:
			monitoring.Debugf("device%d has no trigger", s.DevNum)
			if err := ts.createHRTimer(s, next); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			next++
		}
		monitoring.Tracef("device%d has trigger %s", s.DevNum, s.InitTrigger)
	}
	return errs
}

// match records trigger n for the sensor it names. The name must start
// with the sensor's driver name and end in its device number.
func (ts *TriggerSelector) match(t *Table, name string, n int) {
	dev, ok := trailingNumber(name)
	if !ok {
		return
	}
	for _, s := range t.ByDevice(dev) {
		if strings.HasPrefix(name, s.InternalName) {
			s.proposeTrigger(name, n)
		}
	}
}

func trailingNumber(name string) (int, bool) {
	if len(name) < 2 {
		return 0, false
	}
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, false
	}
	n, err := strconv.Atoi(name[i:])
	return n, err == nil
}

func (s *Sensor) proposeTrigger(name string, n int) {
	s.Triggers = append(s.Triggers, name)
	suffix := strings.TrimPrefix(name, s.InternalName+"-")
	switch {
	case strings.HasPrefix(suffix, "dev"):
		s.implicitTrigger = true
	case strings.HasPrefix(suffix, "hr-dev"):
		s.HRTrigger = n
	}
}

func (ts *TriggerSelector) createHRTimer(s *Sensor, n int) error {
	if !ts.FS.Exists(configfsTrigs) {
		return fmt.Errorf("%s: %w", s.Tag, ErrNoTriggerFolder)
	}
	name := fmt.Sprintf("%s-hr-dev%d", s.InternalName, s.DevNum)
	if !ts.FS.Exists(hrtimerPath(name)) {
		if err := ts.FS.Mkdir(hrtimerPath(name)); err != nil {
			return fmt.Errorf("create hrtimer for %s: %w", s.Tag, err)
		}
	}
	s.proposeTrigger(name, n)
	s.InitTrigger = name
	return nil
}
