package script

import (
	"fmt"
	"io"
	"strings"
)

// Test is one suite block.
type Test struct {
	Description string
	Lines       []string
}

// ReadSuite reads "description { lines }" blocks. The description is the
// first non-empty line before the brace. Blank lines and lines starting
// with '#' inside a block are ignored.
func ReadSuite(r io.Reader) ([]Test, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	var tests []Test
	var buf strings.Builder
	var current *Test
	line := 1
	for _, ch := range string(data) {
		switch ch {
		case '{':
			if current != nil {
				return nil, fmt.Errorf("%w: line %d: nested block", ErrSyntax, line)
			}
			desc := firstLine(buf.String())
			if desc == "" {
				return nil, fmt.Errorf("%w: line %d: block without description", ErrSyntax, line)
			}
			current = &Test{Description: desc}
			buf.Reset()
		case '}':
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: unmatched }", ErrSyntax, line)
			}
			for _, l := range strings.Split(buf.String(), "\n") {
				l = strings.TrimSpace(l)
				if l == "" || strings.HasPrefix(l, "#") {
					continue
				}
				current.Lines = append(current.Lines, l)
			}
			tests = append(tests, *current)
			current = nil
			buf.Reset()
		default:
			if ch == '\n' {
				line++
			}
			buf.WriteRune(ch)
		}
	}
	if current != nil {
		return nil, fmt.Errorf("%w: block %q is not closed", ErrSyntax, current.Description)
	}
	return tests, nil
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
