package iio

import (
	"fmt"

	"github.com/banshee-data/sensorcheck/internal/codec"
	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
)

// ConfigureSampleFormat reads the scan element types of a triggered sensor
// and computes its record layout.
func ConfigureSampleFormat(fs sysfs.FS, s *Sensor) error {
	fields := make([]codec.Field, 0, len(s.Channels)+1)
	for c, ch := range s.Channels {
		spec, err := sysfs.ReadString(fs, ScanElementPath(s.DevNum, ch.TypePath))
		if err != nil {
			return fmt.Errorf("%s channel %s type: %w", s.Tag, ch.Name, err)
		}
		d, size, err := codec.DecodeTypeSpec(spec)
		if err != nil {
			return fmt.Errorf("%s channel %s: %w", s.Tag, ch.Name, err)
		}
		s.Info[c].TypeSpec, s.Info[c].Type, s.Info[c].Size = spec, d, size
		fields = append(fields, codec.Field{Index: s.Info[c].Index, Type: d})
	}

	spec, err := sysfs.ReadString(fs, ScanElementPath(s.DevNum, "in_timestamp_type"))
	if err != nil {
		return fmt.Errorf("%s timestamp type: %w", s.Tag, err)
	}
	d, size, err := codec.DecodeTypeSpec(spec)
	if err != nil {
		return fmt.Errorf("%s timestamp: %w", s.Tag, err)
	}
	s.Timestamp.TypeSpec, s.Timestamp.Type, s.Timestamp.Size = spec, d, size
	fields = append(fields, codec.Field{Index: s.Timestamp.Index, Type: d})

	return s.SetLayout(fields)
}

// SetLayout installs the record layout for fields.
func (s *Sensor) SetLayout(fields []codec.Field) error {
	l, err := codec.NewLayout(fields)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Tag, err)
	}
	s.layout = l
	s.SampleSize = l.Size()
	monitoring.Tracef("%s sample size %d bytes", s.Tag, s.SampleSize)
	return nil
}

// HasSampleFormat reports whether records of s can be sized and decoded.
func (s *Sensor) HasSampleFormat() bool {
	return s.layout != nil && s.SampleSize > 0
}

// DecodeRecord decodes one scan record, updating the channel values and
// LastTimestamp. It returns the record's device timestamp.
func (s *Sensor) DecodeRecord(record []byte) (int64, error) {
	if s.layout == nil {
		return 0, fmt.Errorf("%s: %w", s.Tag, ErrNoSampleFormat)
	}
	raw, err := s.layout.Decode(record)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.Tag, err)
	}
	for c := range s.Info {
		v := s.ScaleRaw(c, raw[s.Info[c].Index])
		s.Info[c].LastValue = v
		monitoring.Tracef("%s %s: %g", s.Tag, s.Channels[c].Name, v)
	}
	ts := raw[s.Timestamp.Index]
	s.LastTimestamp = ts
	return ts, nil
}

// ReadPolled refreshes every channel of a polling sensor from its _raw
// attribute, falling back to _input.
func ReadPolled(fs sysfs.FS, s *Sensor) error {
	for c, ch := range s.Channels {
		v, err := sysfs.ReadInt(fs, DevicePath(s.DevNum, ch.RawPath))
		if err != nil {
			var inErr error
			v, inErr = sysfs.ReadInt(fs, DevicePath(s.DevNum, ch.InputPath))
			if inErr != nil {
				return fmt.Errorf("read %s channel %s: %w", s.Tag, ch.Name, inErr)
			}
		}
		s.Info[c].LastValue = s.ScaleRaw(c, int64(v))
	}
	return nil
}
