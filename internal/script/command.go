package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/banshee-data/sensorcheck/internal/iio"
)

var (
	// ErrSyntax marks a malformed command or suite.
	ErrSyntax = errors.New("syntax error")
	// ErrUnknownVerb marks a command whose verb is not defined.
	ErrUnknownVerb = errors.New("unknown command")
)

// Target is one sensor named by a command.
type Target struct {
	Tag   string
	Attrs iio.TimeAttributes
}

// Command is one parsed command line.
type Command struct {
	Verb    Verb
	Targets []Target
	// Duration is zero when the command does not give one.
	Duration time.Duration
	Counter  int
	Raw      string
}

type parseState int

const (
	stateStart parseState = iota
	stateTag
	stateFreq
	stateDelay
	stateDuration
	stateCounter
	stateDone
)

// Parse reads one command line.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrSyntax)
	}
	verb, err := LookupVerb(fields[0])
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Verb: verb, Raw: strings.Join(fields, " ")}
	if !verb.TakesArguments() {
		return cmd, nil
	}

	state := stateStart
	for _, tok := range fields[1:] {
		if isNumber(tok) {
			if err := cmd.number(state, tok); err != nil {
				return Command{}, err
			}
			state = next(state)
			continue
		}
		if state == stateDone {
			return Command{}, fmt.Errorf("%w: %q after %s", ErrSyntax, tok, cmd.Raw)
		}
		if state == stateFreq || state == stateDuration || state == stateCounter {
			return Command{}, fmt.Errorf("%w: expected a number before %q", ErrSyntax, tok)
		}
		switch tok {
		case "freq", "delay":
			if len(cmd.Targets) == 0 {
				return Command{}, fmt.Errorf("%w: %s before any sensor", ErrSyntax, tok)
			}
			state = stateFreq
			if tok == "delay" {
				state = stateDelay
			}
		case "duration":
			state = stateDuration
		case "counter":
			state = stateCounter
		default:
			cmd.Targets = append(cmd.Targets, Target{Tag: tok})
			state = stateTag
		}
	}
	switch state {
	case stateFreq, stateDuration, stateCounter:
		return Command{}, fmt.Errorf("%w: missing value at end of %q", ErrSyntax, cmd.Raw)
	}
	return cmd, nil
}

// next is the state following a number read in s.
func next(s parseState) parseState {
	switch s {
	case stateFreq:
		// A second number after freq is the delay.
		return stateDelay
	case stateDuration, stateCounter:
		return stateDone
	}
	return stateTag
}

func (c *Command) number(state parseState, tok string) error {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrSyntax, tok, err)
	}
	last := len(c.Targets) - 1
	switch state {
	case stateFreq:
		c.Targets[last].Attrs.Frequency = v
	case stateDelay:
		c.Targets[last].Attrs.MaxDelay = time.Duration(v * float64(time.Millisecond))
	case stateDuration:
		c.Duration = time.Duration(v * float64(time.Second))
	case stateCounter:
		c.Counter = int(v)
	default:
		return fmt.Errorf("%w: unexpected number %q", ErrSyntax, tok)
	}
	return nil
}

func isNumber(tok string) bool {
	r := rune(tok[0])
	return unicode.IsDigit(r) || (r == '.' && len(tok) > 1)
}

// Selection resolves the command's targets against t. Tags that name no
// discovered sensor are returned separately.
func (c Command) Selection(t *iio.Table) (*iio.Selection, []string) {
	sel := iio.NewSelection()
	var missing []string
	for _, target := range c.Targets {
		s, err := t.Lookup(target.Tag)
		if err != nil {
			missing = append(missing, target.Tag)
			continue
		}
		sel.Put(s.Slot, target.Attrs)
	}
	return sel, missing
}

func (c Command) String() string { return c.Raw }
