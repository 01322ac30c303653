// Package script parses harness commands and test suites.
//
// A command is a verb followed by sensor tags with optional per-sensor
// attributes and a trailing duration or counter:
//
//	check_sample accel freq 50 20 anglvel freq 100 delay 10 duration 5
//	activate_deactivate magn counter 3
//
// A suite is a sequence of "description { command lines }" blocks.
package script

import (
	"fmt"

	"github.com/banshee-data/sensorcheck/internal/validate"
)

// Verb is a harness command.
type Verb int

const (
	List Verb = iota + 1
	ListTriggers
	Clean
	ActivateAllSensors
	DeactivateAllSensors
	CheckSampleDifference
	CheckSampleAverageDifference
	CheckClientDelay
	CheckClientAverageDelay
	CheckFrequency
	CheckChannels
	Jitter
	StandardDeviation
	Set
	Activate
	ActivateDeactivate
	ActivateDeactivateAll
	Deactivate
)

var verbNames = []struct {
	verb    Verb
	name    string
	aliases []string
}{
	{List, "list", nil},
	{ListTriggers, "list_trig", []string{"list_triggers"}},
	{Clean, "clean", nil},
	{ActivateAllSensors, "activate_all_sensors", nil},
	{DeactivateAllSensors, "deactivate_all_sensors", nil},
	{CheckSampleDifference, "check_sample_timestamp_difference", []string{"check_sample"}},
	{CheckSampleAverageDifference, "check_sample_timestamp_average_difference", []string{"check_sample_average"}},
	{CheckClientDelay, "check_client_delay", []string{"check_client"}},
	{CheckClientAverageDelay, "check_client_average_delay", []string{"check_client_average"}},
	{CheckFrequency, "check_freq", nil},
	{CheckChannels, "check_channels", nil},
	{Jitter, "jitter", nil},
	{StandardDeviation, "standard_deviation", []string{"standard"}},
	{Set, "set", nil},
	{Activate, "activate", nil},
	{ActivateDeactivate, "activate_deactivate", nil},
	{ActivateDeactivateAll, "activate_deactivate_all", nil},
	{Deactivate, "deactivate", nil},
}

var verbsByName = func() map[string]Verb {
	m := make(map[string]Verb)
	for _, v := range verbNames {
		m[v.name] = v.verb
		for _, a := range v.aliases {
			m[a] = v.verb
		}
	}
	return m
}()

// LookupVerb resolves a verb name or alias.
func LookupVerb(name string) (Verb, error) {
	if v, ok := verbsByName[name]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVerb, name)
}

func (v Verb) String() string {
	for _, n := range verbNames {
		if n.verb == v {
			return n.name
		}
	}
	return fmt.Sprintf("Verb(%d)", int(v))
}

// TakesArguments reports whether the verb reads sensors and attributes.
func (v Verb) TakesArguments() bool {
	switch v {
	case List, ListTriggers, Clean, ActivateAllSensors, DeactivateAllSensors:
		return false
	}
	return true
}

// Check returns the validator run by the verb, if any.
func (v Verb) Check() (validate.Kind, bool) {
	switch v {
	case CheckSampleDifference:
		return validate.SampleDifference, true
	case CheckSampleAverageDifference:
		return validate.SampleAverageDifference, true
	case CheckClientDelay:
		return validate.ClientDelay, true
	case CheckClientAverageDelay:
		return validate.ClientAverageDelay, true
	case CheckFrequency:
		return validate.Frequency, true
	case Jitter:
		return validate.Jitter, true
	case StandardDeviation:
		return validate.Dispersion, true
	}
	return 0, false
}

// Verbs lists every verb name, for help output.
func Verbs() []string {
	out := make([]string, len(verbNames))
	for i, v := range verbNames {
		out[i] = v.name
	}
	return out
}
