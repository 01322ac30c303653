package iio

import (
	"fmt"
	"time"

	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
	"github.com/banshee-data/sensorcheck/internal/timeutil"
)

// Controller switches sensor buffers and triggers on and off.
type Controller struct {
	FS    sysfs.FS
	Clock timeutil.Clock

	// BufferRetries is how many times a buffer enable write is attempted.
	BufferRetries int
	// BufferRetryDelay separates buffer enable attempts.
	BufferRetryDelay time.Duration
	// TriggerAttempts is how many times a current_trigger write is attempted.
	TriggerAttempts int
}

// NewController returns a Controller with the default retry policy.
func NewController(fs sysfs.FS, clock timeutil.Clock) *Controller {
	return &Controller{
		FS:               fs,
		Clock:            clock,
		BufferRetries:    3,
		BufferRetryDelay: 10 * time.Millisecond,
		TriggerAttempts:  5,
	}
}

// EnableBuffer writes buffer/enable, retrying transient failures.
func (c *Controller) EnableBuffer(s *Sensor, on bool) error {
	v := 0
	if on {
		v = 1
	}
	var err error
	for attempt := 0; attempt < max(c.BufferRetries, 1); attempt++ {
		if err = sysfs.WriteInt(c.FS, bufferEnablePath(s.DevNum), v); err == nil {
			return nil
		}
		monitoring.Debugf("failed setting buffer of device%d to %d, retrying: %v", s.DevNum, v, err)
		c.Clock.Sleep(c.BufferRetryDelay)
	}
	return fmt.Errorf("set buffer of %s to %d: %w", s.Tag, v, err)
}

// BufferEnabled reads buffer/enable.
func (c *Controller) BufferEnabled(s *Sensor) (bool, error) {
	v, err := sysfs.ReadInt(c.FS, bufferEnablePath(s.DevNum))
	if err != nil {
		return false, fmt.Errorf("read buffer state of %s: %w", s.Tag, err)
	}
	return v != 0, nil
}

// SetTrigger writes trigger/current_trigger. A name of "\n" detaches.
func (c *Controller) SetTrigger(dev int, name string) error {
	var err error
	for attempt := 0; attempt < max(c.TriggerAttempts, 1); attempt++ {
		if err = sysfs.WriteString(c.FS, currentTriggerPath(dev), name); err == nil {
			monitoring.Tracef("set trigger of device%d to %q", dev, name)
			return nil
		}
	}
	return fmt.Errorf("set trigger of device%d to %q: %w", dev, name, err)
}

// Activate starts (on) or stops a triggered sensor: trigger then buffer on
// the way up, buffer then trigger on the way down. The buffer state is
// read back to confirm.
func (c *Controller) Activate(s *Sensor, on bool) error {
	if s.Mode == ModePoll {
		return fmt.Errorf("device%d: %w", s.DevNum, ErrPollMode)
	}
	enabled, err := c.BufferEnabled(s)
	if err != nil {
		return err
	}
	if enabled == on {
		return fmt.Errorf("%s: %w", s.Tag, ErrAlreadyInState)
	}
	if on {
		if err := c.SetTrigger(s.DevNum, s.InitTrigger); err != nil {
			return err
		}
	}
	if err := c.EnableBuffer(s, on); err != nil {
		return err
	}
	enabled, err = c.BufferEnabled(s)
	if err != nil {
		return err
	}
	if enabled != on {
		return fmt.Errorf("%s buffer was not set to %v", s.Tag, on)
	}
	if !on {
		if err := c.SetTrigger(s.DevNum, "\n"); err != nil {
			return err
		}
	}
	monitoring.Debugf("%s activated=%v", s.Tag, on)
	return nil
}

// ActivateDeactivate cycles s on and off counter times.
func (c *Controller) ActivateDeactivate(s *Sensor, counter int) error {
	if counter <= 0 {
		return ErrInvalidCounter
	}
	for i := 0; i < counter; i++ {
		if err := c.Activate(s, true); err != nil {
			return err
		}
		if err := c.Activate(s, false); err != nil {
			return err
		}
	}
	return nil
}

// ActivateAll switches every discovered triggered sensor, stopping at the
// first failure.
func (c *Controller) ActivateAll(t *Table, on bool) error {
	for _, s := range t.Discovered() {
		if s.Mode == ModePoll {
			continue
		}
		if err := c.Activate(s, on); err != nil {
			return err
		}
	}
	return nil
}

// ActivateDeactivateAll cycles every triggered sensor counter times.
func (c *Controller) ActivateDeactivateAll(t *Table, counter int) error {
	if counter <= 0 {
		return ErrInvalidCounter
	}
	for i := 0; i < counter; i++ {
		if err := c.ActivateAll(t, true); err != nil {
			return err
		}
		if err := c.ActivateAll(t, false); err != nil {
			return err
		}
	}
	return nil
}

// CleanUp disables the buffer of every triggered sensor and verifies it.
func (c *Controller) CleanUp(t *Table) error {
	for _, s := range t.Discovered() {
		if s.Mode == ModePoll {
			continue
		}
		if err := c.EnableBuffer(s, false); err != nil {
			return err
		}
		enabled, err := c.BufferEnabled(s)
		if err != nil {
			return err
		}
		if enabled {
			return fmt.Errorf("%s buffer still enabled", s.Tag)
		}
	}
	return nil
}

// CheckChannels verifies every channel of s is exposed: as a scan element
// for triggered sensors, as a _raw or _input attribute for polled ones.
func (c *Controller) CheckChannels(s *Sensor) error {
	dir := DevicePath(s.DevNum, "")
	if s.Mode == ModeTrigger {
		dir = ScanElementPath(s.DevNum, "")
	}
	entries, err := c.FS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e] = true
	}
	for _, ch := range s.Channels {
		found := present[ch.EnPath]
		if s.Mode == ModePoll {
			found = present[ch.RawPath] || present[ch.InputPath]
		}
		if !found {
			return fmt.Errorf("%s channel %s: %w", s.Tag, ch.Name, ErrNotConfigured)
		}
		monitoring.Debugf("found channel %s for device %s", ch.Name, s.Tag)
	}
	return nil
}
