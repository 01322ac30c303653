package iio

import (
	"fmt"

	"github.com/banshee-data/sensorcheck/internal/monitoring"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
)

// ACPI _PLD panel codes.
const (
	PanelFront = 4
	PanelBack  = 5
)

// ValidPlacement reports whether panel and rotation describe a supported
// placement: front or back panel, rotated by a multiple of 90 degrees.
func ValidPlacement(panel, rotation int) error {
	if panel != PanelFront && panel != PanelBack {
		return fmt.Errorf("invalid PLD panel %d", panel)
	}
	if rotation < 0 || rotation > 7 || rotation&1 != 0 {
		return fmt.Errorf("invalid PLD rotation %d", rotation)
	}
	return nil
}

// ApplyPlacement maps a panel and rotation (in 45 degree steps) onto the
// axis multipliers and x/y order of a three axis sensor.
func ApplyPlacement(s *Sensor, panel, rotation int) {
	if len(s.Info) < 3 {
		return
	}
	x, y, z := 1, 1, 1
	swap := false
	if panel == PanelBack {
		x, z = -x, -z
	}
	switch rotation * 45 {
	case 90:
		y = -y
		swap = true
	case 180:
		x, y = -x, -y
	case 270:
		x = -x
		swap = true
	}
	if swap {
		s.Info[0].Index, s.Info[1].Index = s.Info[1].Index, s.Info[0].Index
	}
	s.Info[0].OptScale = x
	s.Info[1].OptScale = y
	s.Info[2].OptScale = z
}

// decodePlacement applies the firmware placement of s, if any.
func decodePlacement(fs sysfs.FS, s *Sensor) {
	panel, err := sysfs.ReadInt(fs, DevicePath(s.DevNum, "../firmware_node/pld/panel"))
	if err != nil {
		return
	}
	rotation, err := sysfs.ReadInt(fs, DevicePath(s.DevNum, "../firmware_node/pld/rotation"))
	if err != nil {
		return
	}
	if err := ValidPlacement(panel, rotation); err != nil {
		monitoring.Errorf("%s: %v", s.Tag, err)
		return
	}
	monitoring.Tracef("%s PLD from sysfs: panel %d rotation %d", s.Tag, panel, rotation)
	ApplyPlacement(s, panel, rotation)
}
