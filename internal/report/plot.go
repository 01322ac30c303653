package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sensorcheck/internal/security"
)

// intervalBins is the histogram resolution of interval plots.
const intervalBins = 40

// PlotIntervals saves a histogram of inter-sample intervals (ms) as
// <dir>/<name>_intervals.png and returns its path. name is sanitized.
func PlotIntervals(dir, name string, intervals []float64) (string, error) {
	if len(intervals) == 0 {
		return "", errors.New("no intervals to plot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create plot directory: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s sample intervals", name)
	p.X.Label.Text = "Interval (ms)"
	p.Y.Label.Text = "Samples"

	h, err := plotter.NewHist(plotter.Values(intervals), intervalBins)
	if err != nil {
		return "", fmt.Errorf("histogram: %w", err)
	}
	p.Add(h)

	file := filepath.Join(dir, security.SanitizeFilename(name)+"_intervals.png")
	if err := security.WithinDirectory(file, dir); err != nil {
		return "", err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save %s: %w", file, err)
	}
	return file, nil
}
