package iio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorcheck/internal/codec"
	"github.com/banshee-data/sensorcheck/internal/sysfs"
	"github.com/banshee-data/sensorcheck/internal/testutil"
)

func TestConfigureSampleFormat(t *testing.T) {
	m := sysfs.NewMemoryFS()
	testutil.Add(m, testutil.Device{
		Num: 0, Name: "bmc150_accel", Tag: "accel", Channels: []string{"x", "y", "z"},
		Triggered: true, ChannelType: "be:s12/16>>4",
	})
	s := Catalog()[0]
	s.DevNum = 0

	require.NoError(t, ConfigureSampleFormat(m, s))
	assert.Equal(t, 16, s.SampleSize)
	assert.Equal(t, "be:s12/16>>4", s.Info[1].TypeSpec)
	assert.Equal(t, 2, s.Info[1].Size)
	assert.Equal(t, 8, s.Timestamp.Size)

	m.Set(ScanElementPath(0, "in_accel_y_type"), "be:s12/12>>4")
	assert.ErrorIs(t, ConfigureSampleFormat(m, s), codec.ErrInvalidSpec)
}

func TestDecodeRecord(t *testing.T) {
	s := Catalog()[0]
	s.Scale = 0.5
	s.Info[1].OptScale = -1
	s16 := codec.DatumType{Signed: true, RealBits: 16, StorageBits: 16}
	s64 := codec.DatumType{Signed: true, RealBits: 64, StorageBits: 64}

	_, err := s.DecodeRecord(make([]byte, 16))
	assert.ErrorIs(t, err, ErrNoSampleFormat)

	require.NoError(t, s.SetLayout([]codec.Field{{Index: 0, Type: s16}, {Index: 1, Type: s16}, {Index: 2, Type: s16}, {Index: 3, Type: s64}}))

	rec := make([]byte, 16)
	binary.LittleEndian.PutUint16(rec[0:], 10)
	binary.LittleEndian.PutUint16(rec[2:], 20)
	binary.LittleEndian.PutUint16(rec[4:], uint16(0xFFFE))
	binary.LittleEndian.PutUint64(rec[8:], 1_000_000_000)

	ts, err := s.DecodeRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), ts)
	assert.Equal(t, int64(1_000_000_000), s.LastTimestamp)
	assert.Equal(t, []float64{5, -10, -1}, s.Values())

	_, err = s.DecodeRecord(rec[:4])
	assert.ErrorIs(t, err, codec.ErrShortRecord)
}

func TestReadPolled(t *testing.T) {
	m := sysfs.NewMemoryFS()
	testutil.Add(m, testutil.Device{Num: 3, Name: "temp", Tag: "temp", Channels: []string{""}, RawValues: []int{215}})
	s := Catalog()[5]
	s.DevNum = 3
	s.Scale = 0.1

	require.NoError(t, ReadPolled(m, s))
	assert.InDelta(t, 21.5, s.Info[0].LastValue, 1e-9)

	m.Set(DevicePath(3, "in_temp_raw"), "bogus")
	m.Set(DevicePath(3, "in_temp_input"), "220")
	require.NoError(t, ReadPolled(m, s))
	assert.InDelta(t, 22.0, s.Info[0].LastValue, 1e-9)

	m.Set(DevicePath(3, "in_temp_input"), "")
	assert.Error(t, ReadPolled(m, s))
}
