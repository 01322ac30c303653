package iio

// Catalog lists every sensor the harness can discover. Its order fixes the
// slot indices of the sensor table.
func Catalog() []*Sensor {
	entries := []struct {
		tag      string
		typ      SensorType
		channels []ChannelDescriptor
	}{
		{"accel", Accelerometer, []ChannelDescriptor{namedChannel("accel", "x"), namedChannel("accel", "y"), namedChannel("accel", "z")}},
		{"anglvel", Gyroscope, []ChannelDescriptor{namedChannel("anglvel", "x"), namedChannel("anglvel", "y"), namedChannel("anglvel", "z")}},
		{"magn", MagneticField, []ChannelDescriptor{namedChannel("magn", "x"), namedChannel("magn", "y"), namedChannel("magn", "z")}},
		{"intensity", LightIntensity, []ChannelDescriptor{namedChannel("intensity", "both")}},
		{"illuminance", Illuminance, []ChannelDescriptor{genericChannel("illuminance")}},
		{"temp", Temperature, []ChannelDescriptor{genericChannel("temp")}},
		{"proximity", Proximity, []ChannelDescriptor{genericChannel("proximity")}},
	}
	out := make([]*Sensor, len(entries))
	for i, e := range entries {
		out[i] = newSensor(i, e.tag, e.typ, e.channels...)
	}
	return out
}
