// Package report collects test verdicts and renders them as a summary
// table, a results file and interval plots.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/banshee-data/sensorcheck/internal/validate"
)

// SensorLine is the verdict of one check on one sensor.
type SensorLine struct {
	Tag     string
	Check   string
	Rate    float64
	Samples int
	Verdict validate.Verdict
	Details []string
}

// Test is one described group of commands.
type Test struct {
	Description string
	Commands    []string
	Sensors     []SensorLine
	// Errors are command failures not attributable to a sensor.
	Errors []string
}

// Verdict combines the sensor verdicts with the command errors.
func (t *Test) Verdict() validate.Verdict {
	vs := make([]validate.Verdict, 0, len(t.Sensors)+1)
	for _, s := range t.Sensors {
		vs = append(vs, s.Verdict)
	}
	if len(t.Errors) > 0 {
		vs = append(vs, validate.Fail)
	}
	return Combine(vs...)
}

// Combine folds verdicts: any failure fails, otherwise any skip skips. No
// verdicts at all pass.
func Combine(vs ...validate.Verdict) validate.Verdict {
	out := validate.Pass
	for _, v := range vs {
		switch {
		case v == validate.Fail:
			return validate.Fail
		case v == validate.Skip:
			out = validate.Skip
		}
	}
	return out
}

// Report is one harness run.
type Report struct {
	ID      uuid.UUID
	Started time.Time
	Tests   []*Test
}

// New starts a report.
func New(started time.Time) *Report {
	return &Report{ID: uuid.New(), Started: started}
}

// Add appends t.
func (r *Report) Add(t *Test) { r.Tests = append(r.Tests, t) }

// Verdict combines every test.
func (r *Report) Verdict() validate.Verdict {
	vs := make([]validate.Verdict, len(r.Tests))
	for i, t := range r.Tests {
		vs[i] = t.Verdict()
	}
	return Combine(vs...)
}

// Counts returns how many tests passed, failed and were skipped.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, t := range r.Tests {
		switch t.Verdict() {
		case validate.Pass:
			passed++
		case validate.Fail:
			failed++
		case validate.Skip:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Summary renders one row per sensor check.
func (r *Report) Summary() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Title.Format = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("run %s", r.ID))
	t.AppendHeader(table.Row{"#", "Test", "Sensor", "Check", "Rate (Hz)", "Samples", "Verdict"})
	for i, test := range r.Tests {
		if len(test.Sensors) == 0 {
			t.AppendRow(table.Row{i + 1, test.Description, "", "", "", "", test.Verdict()})
		}
		for _, s := range test.Sensors {
			t.AppendRow(table.Row{i + 1, test.Description, s.Tag, s.Check, fmt.Sprintf("%g", s.Rate), s.Samples, s.Verdict})
		}
	}
	passed, failed, skipped := r.Counts()
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped), "", "", "", "", r.Verdict()})
	return t.Render()
}

// WriteTo writes the detailed results.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s started %s\n", r.ID, r.Started.Format(time.RFC3339))
	for _, test := range r.Tests {
		fmt.Fprintf(&b, "\n%s: %s\n", test.Description, test.Verdict())
		for _, c := range test.Commands {
			fmt.Fprintf(&b, "  $ %s\n", c)
		}
		for _, e := range test.Errors {
			fmt.Fprintf(&b, "  error: %s\n", e)
		}
		for _, s := range test.Sensors {
			fmt.Fprintf(&b, "  [%s] %s %s\n", s.Verdict, s.Tag, s.Check)
			for _, d := range s.Details {
				fmt.Fprintf(&b, "      %s\n", d)
			}
		}
	}
	passed, failed, skipped := r.Counts()
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d skipped: %s\n", passed, failed, skipped, r.Verdict())
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Save writes the detailed results to path.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write results: %w", err)
	}
	return f.Close()
}
