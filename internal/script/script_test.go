package script

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorcheck/internal/iio"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
	"github.com/banshee-data/sensorcheck/internal/testutil"
	"github.com/banshee-data/sensorcheck/internal/validate"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"list", Command{Verb: List, Raw: "list"}},
		{"list_trig", Command{Verb: ListTriggers, Raw: "list_trig"}},
		{"clean now", Command{Verb: Clean, Raw: "clean now"}},
		{"  check_freq   accel freq 50  duration 10 ", Command{
			Verb:     CheckFrequency,
			Targets:  []Target{{Tag: "accel", Attrs: iio.TimeAttributes{Frequency: 50}}},
			Duration: 10 * time.Second,
			Raw:      "check_freq accel freq 50 duration 10",
		}},
		{"check_sample accel freq 50 20 anglvel freq 100 delay 10 duration 5", Command{
			Verb: CheckSampleDifference,
			Targets: []Target{
				{Tag: "accel", Attrs: iio.TimeAttributes{Frequency: 50, MaxDelay: 20 * time.Millisecond}},
				{Tag: "anglvel", Attrs: iio.TimeAttributes{Frequency: 100, MaxDelay: 10 * time.Millisecond}},
			},
			Duration: 5 * time.Second,
			Raw:      "check_sample accel freq 50 20 anglvel freq 100 delay 10 duration 5",
		}},
		{"check_client_average magn delay 30", Command{
			Verb:    CheckClientAverageDelay,
			Targets: []Target{{Tag: "magn", Attrs: iio.TimeAttributes{MaxDelay: 30 * time.Millisecond}}},
			Raw:     "check_client_average magn delay 30",
		}},
		{"jitter accel anglvel", Command{
			Verb:    Jitter,
			Targets: []Target{{Tag: "accel"}, {Tag: "anglvel"}},
			Raw:     "jitter accel anglvel",
		}},
		{"set accel freq 12.5", Command{
			Verb:    Set,
			Targets: []Target{{Tag: "accel", Attrs: iio.TimeAttributes{Frequency: 12.5}}},
			Raw:     "set accel freq 12.5",
		}},
		{"activate_deactivate magn counter 3", Command{
			Verb:    ActivateDeactivate,
			Targets: []Target{{Tag: "magn"}},
			Counter: 3,
			Raw:     "activate_deactivate magn counter 3",
		}},
		{"activate_deactivate_all counter 2", Command{Verb: ActivateDeactivateAll, Counter: 2, Raw: "activate_deactivate_all counter 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrSyntax},
		{"reboot accel", ErrUnknownVerb},
		{"check_freq 50", ErrSyntax},
		{"check_freq accel 50", ErrSyntax},
		{"check_freq freq 50", ErrSyntax},
		{"check_freq accel freq", ErrSyntax},
		{"check_freq accel freq duration 3", ErrSyntax},
		{"check_freq accel duration 3 anglvel", ErrSyntax},
		{"check_freq accel duration 3 4", ErrSyntax},
		{"activate accel counter", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Parse(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerbs(t *testing.T) {
	aliases := map[string]Verb{
		"check_sample":         CheckSampleDifference,
		"check_sample_average": CheckSampleAverageDifference,
		"check_client":         CheckClientDelay,
		"check_client_average": CheckClientAverageDelay,
		"standard":             StandardDeviation,
	}
	for name, want := range aliases {
		got, err := LookupVerb(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	for _, name := range Verbs() {
		v, err := LookupVerb(name)
		require.NoError(t, err)
		assert.Equal(t, name, v.String())
	}

	kind, ok := StandardDeviation.Check()
	assert.True(t, ok)
	assert.Equal(t, validate.Dispersion, kind)
	_, ok = Set.Check()
	assert.False(t, ok)
	assert.Equal(t, "Verb(0)", Verb(0).String())
}

func TestSelection(t *testing.T) {
	m := sysfs.NewMemoryFS()
	testutil.Add(m, testutil.Device{Num: 0, Name: "bmc150_accel", Tag: "accel", Channels: []string{"x", "y", "z"}, Triggered: true})
	testutil.AddTrigger(m, 0, "bmc150_accel-dev0")
	table, err := (&iio.Discoverer{FS: m}).Discover()
	require.NoError(t, err)

	cmd, err := Parse("check_freq accel freq 50 magn freq 10")
	require.NoError(t, err)
	sel, missing := cmd.Selection(table)
	assert.Equal(t, []string{"magn"}, missing)
	require.Equal(t, 1, sel.Len())
	attrs, ok := sel.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 50.0, attrs.Frequency)
}

func TestReadSuite(t *testing.T) {
	const suite = `
Accelerometer runs at 50 Hz
{
	set accel freq 50
	# steady state only
	check_freq accel freq 50 duration 10

}
Jitter {
	jitter accel
}
`
	tests, err := ReadSuite(strings.NewReader(suite))
	require.NoError(t, err)
	want := []Test{
		{Description: "Accelerometer runs at 50 Hz", Lines: []string{"set accel freq 50", "check_freq accel freq 50 duration 10"}},
		{Description: "Jitter", Lines: []string{"jitter accel"}},
	}
	if diff := cmp.Diff(want, tests); diff != "" {
		t.Errorf("ReadSuite mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSuite_Errors(t *testing.T) {
	for _, in := range []string{
		"a { list",
		"list }",
		"{ list }",
		"a { b { list } }",
	} {
		_, err := ReadSuite(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrSyntax, in)
	}
}
