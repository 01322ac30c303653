// Package codec turns raw IIO scan records into integers and physical values.
//
// A channel's layout is described by its scan_elements *_type attribute,
// e.g. "le:s12/16>>4": little endian, signed, 12 significant bits stored in
// 16, shifted right by 4.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSpec reports a malformed *_type attribute.
	ErrInvalidSpec = errors.New("invalid type spec")
	// ErrShortRecord reports a record smaller than its layout.
	ErrShortRecord = errors.New("short record")
)

// DatumType describes how one field is stored in a scan record.
type DatumType struct {
	Signed      bool
	BigEndian   bool
	RealBits    int
	StorageBits int
	Shift       int
}

// Size is the field's byte size.
func (d DatumType) Size() int { return d.StorageBits / 8 }

func (d DatumType) String() string {
	e, s := 'l', 'u'
	if d.BigEndian {
		e = 'b'
	}
	if d.Signed {
		s = 's'
	}
	return fmt.Sprintf("%ce:%c%d/%d>>%d", e, s, d.RealBits, d.StorageBits, d.Shift)
}

var specPattern = regexp.MustCompile(`^([a-z])e:([a-z])(\d+)/(\d+)>>(\d+)$`)

// DecodeTypeSpec parses a type spec and returns the datum type and the
// field's byte size.
func DecodeTypeSpec(text string) (DatumType, int, error) {
	m := specPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return DatumType{}, 0, fmt.Errorf("%w: %q", ErrInvalidSpec, text)
	}
	var d DatumType
	switch m[1] {
	case "b":
		d.BigEndian = true
	case "l":
	default:
		return DatumType{}, 0, fmt.Errorf("%w: endianness %q", ErrInvalidSpec, m[1])
	}
	switch m[2] {
	case "s":
		d.Signed = true
	case "u":
	default:
		return DatumType{}, 0, fmt.Errorf("%w: sign %q", ErrInvalidSpec, m[2])
	}
	// The pattern guarantees digits; only overflow can fail here.
	var err error
	if d.RealBits, err = strconv.Atoi(m[3]); err != nil {
		return DatumType{}, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if d.StorageBits, err = strconv.Atoi(m[4]); err != nil {
		return DatumType{}, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if d.Shift, err = strconv.Atoi(m[5]); err != nil {
		return DatumType{}, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if d.RealBits > d.StorageBits {
		return DatumType{}, 0, fmt.Errorf("%w: %d real bits exceed %d storage bits", ErrInvalidSpec, d.RealBits, d.StorageBits)
	}
	switch d.StorageBits {
	case 16, 32, 64:
	default:
		return DatumType{}, 0, fmt.Errorf("%w: storage bits %d", ErrInvalidSpec, d.StorageBits)
	}
	return d, d.Size(), nil
}

// Padding returns how many filler bytes precede a field of storageBits
// placed after total bytes.
func Padding(total, storageBits int) int {
	if storageBits%8 != 0 {
		return 0
	}
	align := storageBits / 8
	if align == 0 || total%align == 0 {
		return 0
	}
	return align - total%align
}

// DecodeSample extracts one field from raw, which must hold at least
// d.Size() bytes.
//
// Unsigned values are returned in an int64; 64-bit unsigned fields with the
// top bit set come back negative.
func DecodeSample(raw []byte, d DatumType) int64 {
	var u uint64
	switch d.StorageBits {
	case 16:
		if d.BigEndian {
			u = uint64(binary.BigEndian.Uint16(raw))
		} else {
			u = uint64(binary.LittleEndian.Uint16(raw))
		}
	case 32:
		if d.BigEndian {
			u = uint64(binary.BigEndian.Uint32(raw))
		} else {
			u = uint64(binary.LittleEndian.Uint32(raw))
		}
	case 64:
		if d.BigEndian {
			u = binary.BigEndian.Uint64(raw)
		} else {
			u = binary.LittleEndian.Uint64(raw)
		}
	default:
		return 0
	}

	u >>= uint(d.Shift)
	if d.RealBits < 64 {
		u &= (uint64(1) << uint(d.RealBits)) - 1
	}

	if !d.Signed {
		return int64(u)
	}
	switch d.RealBits {
	case 0, 1:
		return 0
	case 8:
		return int64(int8(u))
	case 16:
		return int64(int16(u))
	case 32:
		return int64(int32(u))
	case 64:
		return int64(u)
	}
	sign := uint64(1) << uint(d.RealBits-1)
	if u&sign == 0 {
		return int64(u)
	}
	return -int64((^u & (sign - 1)) + 1)
}

// Scale converts a raw reading to a physical value. A zero sensorScale
// selects the per-channel scale.
func Scale(raw int64, optScale int, offset, sensorScale, channelScale float64) float64 {
	v := float64(raw*int64(optScale)) + offset
	if sensorScale == 0 {
		return v * channelScale
	}
	return v * sensorScale
}
