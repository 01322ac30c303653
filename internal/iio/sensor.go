// Package iio models the sensors exposed by the Linux Industrial I/O
// subsystem: discovery from sysfs, trigger selection, activation and sample
// decoding.
package iio

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sensorcheck/internal/codec"
)

const (
	// MaxChannels is the most channels a sensor carries.
	MaxChannels = 4
	// DefaultMaxDevices is how many iio:deviceN entries discovery probes.
	DefaultMaxDevices = 9
	// DefaultMaxTriggers is how many triggerN entries are probed.
	DefaultMaxTriggers = 8
	// DefaultMaxDelay applies when a command gives no delay bound.
	DefaultMaxDelay = 500 * time.Millisecond
)

var (
	ErrPollMode        = errors.New("sensor is in polling mode")
	ErrAlreadyInState  = errors.New("sensor already in requested state")
	ErrUnknownSensor   = errors.New("unknown sensor")
	ErrNotConfigured   = errors.New("channel not configured")
	ErrNoSampleFormat  = errors.New("sample format not configured")
	ErrInvalidCounter  = errors.New("counter must be positive")
	ErrNoTriggerFolder = errors.New("configfs trigger folder missing")
)

// SensorType enumerates the sensor kinds the harness knows.
type SensorType int

const (
	Accelerometer SensorType = iota
	Gyroscope
	MagneticField
	LightIntensity
	Illuminance
	Orientation
	RotationVector
	Temperature
	Proximity
)

var sensorTypeNames = map[SensorType]string{
	Accelerometer:  "accelerometer",
	Gyroscope:      "gyroscope",
	MagneticField:  "magnetic-field",
	LightIntensity: "light-intensity",
	Illuminance:    "illuminance",
	Orientation:    "orientation",
	RotationVector: "rotation-vector",
	Temperature:    "temperature",
	Proximity:      "proximity",
}

func (t SensorType) String() string {
	if s, ok := sensorTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("SensorType(%d)", int(t))
}

// Mode is how samples are obtained from a sensor.
type Mode int

const (
	// ModePoll sensors are read attribute by attribute on demand.
	ModePoll Mode = iota + 1
	// ModeTrigger sensors push packed records through /dev/iio:deviceN.
	ModeTrigger
)

func (m Mode) String() string {
	switch m {
	case ModePoll:
		return "polling"
	case ModeTrigger:
		return "triggered"
	}
	return "unknown"
}

// ChannelDescriptor names the sysfs attributes of one channel.
type ChannelDescriptor struct {
	Name      string
	EnPath    string
	TypePath  string
	IndexPath string
	RawPath   string
	InputPath string
	ScalePath string
}

// namedChannel builds the in_<tag>_<name>_* attribute names.
func namedChannel(tag, name string) ChannelDescriptor {
	return channel(tag, "_", name)
}

// genericChannel builds the in_<tag>_* attribute names.
func genericChannel(tag string) ChannelDescriptor {
	return channel(tag, "", "")
}

func channel(tag, spacer, name string) ChannelDescriptor {
	base := "in_" + tag + spacer + name
	return ChannelDescriptor{
		Name:      name,
		EnPath:    base + "_en",
		TypePath:  base + "_type",
		IndexPath: base + "_index",
		RawPath:   base + "_raw",
		InputPath: base + "_input",
		ScalePath: base + "_scale",
	}
}

// ChannelInfo is the per-channel decode state.
type ChannelInfo struct {
	Size      int
	Index     int
	LastValue float64
	// OptScale flips an axis to match the panel placement.
	OptScale int
	Scale    float64
	TypeSpec string
	Type     codec.DatumType
}

// Sensor is one slot of the sensor table.
type Sensor struct {
	Slot         int
	Tag          string
	Type         SensorType
	InternalName string
	DevNum       int
	Mode         Mode
	Discovered   bool

	// Offset and Scale convert raw readings: (raw + Offset) * Scale. A zero
	// Scale means each channel carries its own.
	Offset float64
	Scale  float64

	Channels  []ChannelDescriptor
	Info      []ChannelInfo
	Timestamp ChannelInfo

	SampleSize    int
	LastTimestamp int64
	DataRate      float64

	Triggers        []string
	InitTrigger     string
	HRTrigger       int
	implicitTrigger bool

	layout *codec.Layout
}

func newSensor(slot int, tag string, typ SensorType, channels ...ChannelDescriptor) *Sensor {
	s := &Sensor{
		Slot:          slot,
		Tag:           tag,
		Type:          typ,
		Scale:         1,
		Channels:      channels,
		Info:          make([]ChannelInfo, len(channels)),
		LastTimestamp: -1,
		HRTrigger:     -1,
		DevNum:        -1,
	}
	for i := range s.Info {
		s.Info[i].OptScale = 1
		s.Info[i].Index = i
	}
	s.Timestamp.Index = len(channels)
	return s
}

func (s *Sensor) String() string {
	return fmt.Sprintf("%s(dev%d,%s)", s.Tag, s.DevNum, s.Mode)
}

// NumChannels returns the channel count.
func (s *Sensor) NumChannels() int { return len(s.Channels) }

// Values returns a copy of the last decoded value of every channel.
func (s *Sensor) Values() []float64 {
	out := make([]float64, len(s.Info))
	for i, info := range s.Info {
		out[i] = info.LastValue
	}
	return out
}

// ScaleRaw applies the orientation multiplier, offset and scale of
// channel c to raw.
func (s *Sensor) ScaleRaw(c int, raw int64) float64 {
	info := s.Info[c]
	return codec.Scale(raw, info.OptScale, s.Offset, s.Scale, info.Scale)
}
