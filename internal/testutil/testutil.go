// Package testutil provides shared test fixtures.
//
// The fixtures lay out IIO devices in a sysfs.MemoryFS the way the kernel
// exposes them, so discovery, rate negotiation and acquisition can be
// exercised without hardware.
package testutil

import (
	"fmt"
	"strconv"

	"github.com/banshee-data/sensorcheck/internal/sysfs"
)

// Device describes one fake iio:deviceN.
type Device struct {
	Num  int
	Name string
	// Tag is the channel prefix, e.g. "accel".
	Tag string
	// Channels are channel names; an empty name gives in_<tag>_raw style
	// attributes.
	Channels []string
	// Triggered devices get buffer/ and scan_elements/ entries.
	Triggered bool
	Rate      float64
	Available string
	// ChannelType defaults to le:s16/16>>0 and TimestampType to le:s64/64>>0.
	ChannelType   string
	TimestampType string
	Scale         float64
	// RawValues are the _raw readings of a polled device.
	RawValues []int
}

func (d Device) base() string {
	return fmt.Sprintf("/sys/bus/iio/devices/iio:device%d", d.Num)
}

func (d Device) prefix(ch string) string {
	if ch == "" {
		return "in_" + d.Tag
	}
	return "in_" + d.Tag + "_" + ch
}

// Add writes d into m.
func Add(m *sysfs.MemoryFS, d Device) {
	base := d.base()
	m.Set(base+"/name", d.Name+"\n")
	if d.Rate > 0 {
		m.Set(base+"/sampling_frequency", format(d.Rate))
	}
	if d.Available != "" {
		m.Set(base+"/sampling_frequency_available", d.Available+"\n")
	}
	if d.Scale != 0 {
		m.Set(base+"/in_"+d.Tag+"_scale", format(d.Scale))
	}

	if !d.Triggered {
		for i, ch := range d.Channels {
			v := 0
			if i < len(d.RawValues) {
				v = d.RawValues[i]
			}
			m.Set(base+"/"+d.prefix(ch)+"_raw", strconv.Itoa(v))
		}
		return
	}

	chType := d.ChannelType
	if chType == "" {
		chType = "le:s16/16>>0"
	}
	tsType := d.TimestampType
	if tsType == "" {
		tsType = "le:s64/64>>0"
	}
	m.Set(base+"/buffer/enable", "0")
	m.Set(base+"/trigger/current_trigger", "")
	scan := base + "/scan_elements/"
	for i, ch := range d.Channels {
		p := d.prefix(ch)
		m.Set(scan+p+"_en", "0")
		m.Set(scan+p+"_type", chType)
		m.Set(scan+p+"_index", strconv.Itoa(i))
	}
	m.Set(scan+"in_timestamp_en", "0")
	m.Set(scan+"in_timestamp_type", tsType)
	m.Set(scan+"in_timestamp_index", strconv.Itoa(len(d.Channels)))
}

// AddTrigger registers /sys/bus/iio/devices/triggerN.
func AddTrigger(m *sysfs.MemoryFS, n int, name string) {
	m.Set(fmt.Sprintf("/sys/bus/iio/devices/trigger%d/name", n), name+"\n")
	m.Set(fmt.Sprintf("/sys/bus/iio/devices/trigger%d/sampling_frequency", n), "0")
}

// AddConfigfs creates the configfs hrtimer folder.
func AddConfigfs(m *sysfs.MemoryFS) {
	m.Set("/sys/kernel/config/iio/triggers/hrtimer/.keep", "")
}

// SetPlacement writes firmware PLD panel and rotation for device dev.
func SetPlacement(m *sysfs.MemoryFS, dev, panel, rotation int) {
	base := fmt.Sprintf("/sys/bus/iio/devices/iio:device%d/../firmware_node/pld/", dev)
	m.Set(base+"panel", strconv.Itoa(panel))
	m.Set(base+"rotation", strconv.Itoa(rotation))
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
