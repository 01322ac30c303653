package iio

import (
	"fmt"
	"strings"
	"time"
)

// Table is the sensor arena. Slots are fixed when the table is built and
// indices stay valid for the life of the process.
type Table struct {
	sensors []*Sensor
}

// NewTable wraps sensors, renumbering their slots by position.
func NewTable(sensors ...*Sensor) *Table {
	for i, s := range sensors {
		s.Slot = i
	}
	return &Table{sensors: sensors}
}

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.sensors) }

// At returns the sensor in slot i.
func (t *Table) At(i int) *Sensor { return t.sensors[i] }

// Discovered returns discovered sensors in slot order.
func (t *Table) Discovered() []*Sensor {
	var out []*Sensor
	for _, s := range t.sensors {
		if s.Discovered {
			out = append(out, s)
		}
	}
	return out
}

// Lookup finds a discovered sensor whose tag starts with tag, so "anglvel"
// also answers to "angl".
func (t *Table) Lookup(tag string) (*Sensor, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: empty tag", ErrUnknownSensor)
	}
	for _, s := range t.sensors {
		if s.Discovered && strings.HasPrefix(s.Tag, tag) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, tag)
}

// ByDevice returns the discovered sensors bound to iio:deviceN.
func (t *Table) ByDevice(dev int) []*Sensor {
	var out []*Sensor
	for _, s := range t.sensors {
		if s.Discovered && s.DevNum == dev {
			out = append(out, s)
		}
	}
	return out
}

// TimeAttributes are the per-sensor parameters of one command.
type TimeAttributes struct {
	// Frequency is the requested rate in Hz; zero lets the check choose.
	Frequency float64
	MaxDelay  time.Duration
}

// MaxDelayMillis returns the delay bound in milliseconds.
func (a TimeAttributes) MaxDelayMillis() float64 {
	return float64(a.MaxDelay) / float64(time.Millisecond)
}

// Selection maps sensor slots to their attributes in insertion order.
type Selection struct {
	slots []int
	attrs map[int]TimeAttributes
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{attrs: make(map[int]TimeAttributes)}
}

// Put adds or replaces a slot. Replacing keeps the original position.
func (s *Selection) Put(slot int, a TimeAttributes) {
	if _, ok := s.attrs[slot]; !ok {
		s.slots = append(s.slots, slot)
	}
	s.attrs[slot] = a
}

// Get returns the attributes of slot.
func (s *Selection) Get(slot int) (TimeAttributes, bool) {
	a, ok := s.attrs[slot]
	return a, ok
}

// Len returns the number of selected slots.
func (s *Selection) Len() int { return len(s.slots) }

// Slots returns the selected slots in insertion order.
func (s *Selection) Slots() []int {
	return append([]int(nil), s.slots...)
}

// Each calls fn for every entry in insertion order until fn returns false.
func (s *Selection) Each(fn func(slot int, a TimeAttributes) bool) {
	for _, slot := range s.slots {
		if !fn(slot, s.attrs[slot]) {
			return
		}
	}
}
