package iio

import (
	"fmt"

	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
)

// Discoverer enumerates IIO devices and fills the sensor table.
type Discoverer struct {
	FS          sysfs.FS
	MaxDevices  int
	MaxTriggers int
}

// Discover probes iio:device0..MaxDevices-1, maps their attributes onto
// the catalog and selects a trigger for every triggered sensor.
func (d *Discoverer) Discover() (*Table, error) {
	maxDevices := d.MaxDevices
	if maxDevices <= 0 {
		maxDevices = DefaultMaxDevices
	}
	t := NewTable(Catalog()...)

	for dev := 0; dev < maxDevices; dev++ {
		if !d.FS.Exists(DevicePath(dev, "")) {
			continue
		}
		mode, dir := ModePoll, DevicePath(dev, "")
		if d.FS.Exists(DevicePath(dev, "buffer")) || d.FS.Exists(ScanElementPath(dev, "")) {
			mode, dir = ModeTrigger, ScanElementPath(dev, "")
		}
		entries, err := d.FS.ReadDir(dir)
		if err != nil {
			monitoring.Debugf("device%d: %v", dev, err)
			continue
		}
		for _, s := range t.sensors {
			if s.Discovered || !matches(s, mode, entries) {
				continue
			}
			d.addSensor(s, dev, mode)
		}
	}

	for _, s := range t.Discovered() {
		if s.Mode != ModeTrigger {
			continue
		}
		if err := ConfigureSampleFormat(d.FS, s); err != nil {
			monitoring.Errorf("%v", err)
		}
	}

	sel := TriggerSelector{FS: d.FS, MaxTriggers: d.MaxTriggers}
	if err := sel.Select(t); err != nil {
		return t, fmt.Errorf("select triggers: %w", err)
	}
	monitoring.Debugf("discovered %d sensors", len(t.Discovered()))
	return t, nil
}

// matches reports whether a device directory listing carries s. Triggered
// devices are matched on the first channel's scan element, polling devices
// on any channel's _raw or _input attribute.
func matches(s *Sensor, mode Mode, entries []string) bool {
	for _, e := range entries {
		if mode == ModeTrigger {
			if e == s.Channels[0].EnPath {
				return true
			}
			continue
		}
		for _, ch := range s.Channels {
			if e == ch.RawPath || e == ch.InputPath {
				return true
			}
		}
	}
	return false
}

func (d *Discoverer) addSensor(s *Sensor, dev int, mode Mode) {
	name, err := sysfs.ReadString(d.FS, DevicePath(dev, "name"))
	if err != nil || name == "" {
		monitoring.Debugf("device%d has no name and won't be added to the sensor list", dev)
		return
	}
	s.InternalName = name
	s.DevNum = dev
	s.Mode = mode
	s.Discovered = true

	if mode == ModeTrigger {
		for c, ch := range s.Channels {
			if idx, err := sysfs.ReadInt(d.FS, ScanElementPath(dev, ch.IndexPath)); err == nil {
				s.Info[c].Index = idx
			}
		}
		if idx, err := sysfs.ReadInt(d.FS, ScanElementPath(dev, "in_timestamp_index")); err == nil {
			s.Timestamp.Index = idx
		}
		if rate, err := sysfs.ReadFloat(d.FS, SensorRatePath(s)); err == nil {
			s.DataRate = rate
		} else if rate, err := sysfs.ReadFloat(d.FS, DeviceRatePath(dev)); err == nil {
			s.DataRate = rate
		} else {
			monitoring.Debugf("cannot read frequency for device%d", dev)
		}
		for _, ch := range s.Channels {
			if err := sysfs.WriteInt(d.FS, ScanElementPath(dev, ch.EnPath), 1); err != nil {
				monitoring.Errorf("enable %s: %v", ch.EnPath, err)
			}
		}
		if err := sysfs.WriteInt(d.FS, ScanElementPath(dev, "in_timestamp_en"), 1); err != nil {
			monitoring.Errorf("enable %s timestamp: %v", s.Tag, err)
		}
	} else if rate, err := sysfs.ReadFloat(d.FS, SensorRatePath(s)); err == nil {
		s.DataRate = rate
	}

	if off, err := sysfs.ReadFloatIfExists(d.FS, DevicePath(dev, "in_"+s.Tag+"_offset"), 0); err == nil {
		s.Offset = off
	} else {
		monitoring.Errorf("%s offset: %v", s.Tag, err)
	}

	if scale, err := sysfs.ReadFloat(d.FS, DevicePath(dev, "in_"+s.Tag+"_scale")); err == nil {
		s.Scale = scale
	} else {
		s.Scale = 1
		for c, ch := range s.Channels {
			if cs, err := sysfs.ReadFloat(d.FS, DevicePath(dev, ch.ScalePath)); err == nil {
				s.Info[c].Scale = cs
				s.Scale = 0
			}
		}
	}

	decodePlacement(d.FS, s)
	monitoring.Debugf("found %s (%s) on device%d in %s mode", s.Tag, name, dev, mode)
}
