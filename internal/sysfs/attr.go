package sysfs

import (
	"fmt"
	"strconv"
	"strings"
)

// ReadString reads an attribute with surrounding whitespace removed.
func ReadString(f FS, name string) (string, error) {
	data, err := f.ReadFile(name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadInt reads a decimal integer attribute.
func ReadInt(f FS, name string) (int, error) {
	s, err := ReadString(f, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// ReadFloat reads a decimal float attribute.
func ReadFloat(f FS, name string) (float64, error) {
	s, err := ReadString(f, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// ReadFloatIfExists returns def when the attribute is absent.
func ReadFloatIfExists(f FS, name string, def float64) (float64, error) {
	if !f.Exists(name) {
		return def, nil
	}
	return ReadFloat(f, name)
}

// ReadFloatList reads a whitespace-separated float list such as
// sampling_frequency_available.
func ReadFloatList(f FS, name string) ([]float64, error) {
	s, err := ReadString(f, name)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteString writes s verbatim.
func WriteString(f FS, name, s string) error {
	return f.WriteFile(name, []byte(s))
}

// WriteInt writes a decimal integer.
func WriteInt(f FS, name string, v int) error {
	return f.WriteFile(name, []byte(strconv.Itoa(v)))
}

// WriteFloat writes the shortest decimal form of v.
func WriteFloat(f FS, name string, v float64) error {
	return f.WriteFile(name, []byte(strconv.FormatFloat(v, 'f', -1, 64)))
}
