package iio

import "fmt"

const (
	devicesDir    = "/sys/bus/iio/devices"
	configfsTrigs = "/sys/kernel/config/iio/triggers"
)

// DevicePath is the sysfs directory of iio:deviceN, or attr within it.
func DevicePath(dev int, attr string) string {
	base := fmt.Sprintf("%s/iio:device%d", devicesDir, dev)
	if attr == "" {
		return base
	}
	return base + "/" + attr
}

// ScanElementPath is an attribute under scan_elements, or the directory.
func ScanElementPath(dev int, attr string) string {
	if attr == "" {
		return DevicePath(dev, "scan_elements")
	}
	return DevicePath(dev, "scan_elements/"+attr)
}

// DeviceFile is the character device streaming records.
func DeviceFile(dev int) string {
	return fmt.Sprintf("/dev/iio:device%d", dev)
}

func bufferEnablePath(dev int) string  { return DevicePath(dev, "buffer/enable") }
func currentTriggerPath(dev int) string { return DevicePath(dev, "trigger/current_trigger") }

// SensorRatePath is the per-sensor sampling frequency attribute.
func SensorRatePath(s *Sensor) string {
	return DevicePath(s.DevNum, "in_"+s.Tag+"_sampling_frequency")
}

// DeviceRatePath is the device-wide sampling frequency attribute.
func DeviceRatePath(dev int) string { return DevicePath(dev, "sampling_frequency") }

// AvailableRatesPath lists supported sampling frequencies.
func AvailableRatesPath(dev int) string { return DevicePath(dev, "sampling_frequency_available") }

// TriggerNamePath is /sys/bus/iio/devices/triggerN/name.
func TriggerNamePath(n int) string {
	return fmt.Sprintf("%s/trigger%d/name", devicesDir, n)
}

// TriggerRatePath is /sys/bus/iio/devices/triggerN/sampling_frequency.
func TriggerRatePath(n int) string {
	return fmt.Sprintf("%s/trigger%d/sampling_frequency", devicesDir, n)
}

func hrtimerPath(name string) string {
	return configfsTrigs + "/hrtimer/" + name
}
