package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
	"github.com/banshee-data/sensorcheck/internal/testutil"
	"github.com/banshee-data/sensorcheck/internal/timeutil"
)

func setup(t *testing.T, available string) (*sysfs.MemoryFS, *iio.Table, *Negotiator) {
	t.Helper()
	m := sysfs.NewMemoryFS()
	testutil.Add(m, testutil.Device{
		Num: 0, Name: "bmc150_accel", Tag: "accel", Channels: []string{"x", "y", "z"},
		Triggered: true, Rate: 25, Available: available,
	})
	testutil.Add(m, testutil.Device{Num: 1, Name: "als", Tag: "illuminance", Channels: []string{""}})
	testutil.AddTrigger(m, 0, "bmc150_accel-dev0")
	table, err := (&iio.Discoverer{FS: m}).Discover()
	require.NoError(t, err)
	ctl := iio.NewController(m, timeutil.NewMockClock(time.Unix(0, 0)))
	return m, table, &Negotiator{FS: m, Control: ctl}
}

func TestComplianceRate(t *testing.T) {
	tests := []struct {
		typ          iio.SensorType
		must, should float64
	}{
		{iio.Accelerometer, 100, 200},
		{iio.Gyroscope, 200, 200},
		{iio.MagneticField, 10, 50},
		{iio.Temperature, 1, 2},
		{iio.Illuminance, 1, 1},
		{iio.Proximity, 1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.must, ComplianceRate(tt.typ, true), tt.typ.String())
		assert.Equal(t, tt.should, ComplianceRate(tt.typ, false), tt.typ.String())
	}
}

func TestSelectClosest(t *testing.T) {
	tests := []struct {
		name      string
		available string
		requested float64
		want      Choice
		wantErr   error
	}{
		{"bound reached first", "10 50 100 200", 120, Choice{Rate: 200}, nil},
		{"first above request", "10 50 100 200", 60, Choice{Rate: 100}, nil},
		{"request beyond bound", "10 50 100 200", 250, Choice{Rate: 200}, nil},
		{"within tolerance", "10 12.5 50", 12.505, Choice{Rate: 12.5}, nil},
		{"stop before bound", "10 100 400", 300, Choice{Rate: 100}, nil},
		{"exhausted returns last", "10 50 100", 150, Choice{Rate: 100}, nil},
		{"already there", "10 50 100 200", 25, Choice{Rate: 25, NoChange: true}, nil},
		{"lowest above bound", "400 800", 100, Choice{}, ErrNoRates},
		{"empty list", " ", 100, Choice{}, ErrNoRates},
		{"only zero listed", "0", 100, Choice{}, ErrNoRates},
		{"zero within tolerance", "0 50", 0.005, Choice{}, ErrNoRates},
		{"zero request", "10 50", 0, Choice{}, ErrInvalidRate},
		{"negative request", "10 50", -5, Choice{}, ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, table, n := setup(t, tt.available)
			accel, err := table.Lookup("accel")
			require.NoError(t, err)

			got, err := n.SelectClosest(accel, tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_RestartsEnabledSensor(t *testing.T) {
	m, table, n := setup(t, "12.5 25 50 100 200")
	accel, _ := table.Lookup("accel")
	require.NoError(t, n.Control.Activate(accel, true))

	choice, err := n.Apply(accel, 60)
	require.NoError(t, err)
	assert.Equal(t, Choice{Rate: 100}, choice)
	assert.Equal(t, 100.0, accel.DataRate)
	assert.Equal(t, "100", m.Get(iio.DeviceRatePath(0)))
	assert.Equal(t, "1", m.Get(iio.DevicePath(0, "buffer/enable")))

	var seq []string
	for _, w := range m.Writes() {
		switch w.Name {
		case iio.DevicePath(0, "buffer/enable"), iio.DeviceRatePath(0):
			seq = append(seq, w.Data)
		}
	}
	assert.Equal(t, []string{"1", "0", "100", "1"}, seq)
}

func TestApply_PrefersSensorAttribute(t *testing.T) {
	m, table, n := setup(t, "12.5 25 50 100 200")
	accel, _ := table.Lookup("accel")
	m.Set(iio.SensorRatePath(accel), "25")

	_, err := n.Apply(accel, 50)
	require.NoError(t, err)
	assert.Equal(t, "50", m.Get(iio.SensorRatePath(accel)))
	assert.Equal(t, "25", m.Get(iio.DeviceRatePath(0)))
}

func TestApply_HighResolutionTrigger(t *testing.T) {
	m, table, n := setup(t, "12.5 25 50 100 200")
	accel, _ := table.Lookup("accel")
	testutil.AddTrigger(m, 3, "bmc150_accel-hr-dev0")
	accel.HRTrigger = 3

	require.NoError(t, n.Set(accel, 50))
	assert.Equal(t, "50", m.Get(iio.TriggerRatePath(3)))
	assert.Equal(t, 50.0, accel.DataRate)
}

func TestApply_NoChange(t *testing.T) {
	m, table, n := setup(t, "12.5 25 50 100 200")
	accel, _ := table.Lookup("accel")
	accel.DataRate = 0

	choice, err := n.Apply(accel, 25)
	require.NoError(t, err)
	assert.True(t, choice.NoChange)
	assert.Equal(t, 25.0, accel.DataRate)
	for _, w := range m.Writes() {
		assert.NotEqual(t, iio.DeviceRatePath(0), w.Name)
	}
}

func TestApply_SimulatedPolledRate(t *testing.T) {
	_, table, n := setup(t, "10 50")
	als, _ := table.Lookup("illuminance")

	require.NoError(t, n.Set(als, 5))
	assert.Equal(t, 5.0, als.DataRate)

	_, err := n.Apply(als, 0)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestSet_VerifyFails(t *testing.T) {
	m, table, n := setup(t, "12.5 25 50 100 200")
	accel, _ := table.Lookup("accel")
	// The driver rounds every write to 25 Hz.
	m.OnWrite(iio.DeviceRatePath(0), func(fs *sysfs.MemoryFS, _ []byte) error {
		fs.Set(iio.DeviceRatePath(0), "25")
		return nil
	})
	assert.ErrorIs(t, n.Set(accel, 100), ErrVerify)
}

func TestChoiceString(t *testing.T) {
	assert.Equal(t, "no change", Choice{Rate: 5, NoChange: true}.String())
	assert.Equal(t, "50 Hz", Choice{Rate: 50}.String())
	assert.Equal(t, "5 Hz (simulated)", Choice{Rate: 5, Simulated: true}.String())
}
