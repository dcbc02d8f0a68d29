package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/bulletx/internal/storage"
)

type PlotOptions struct {
	Width   int
	Height  int
	Caption string
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green,
	asciigraph.Red, asciigraph.Blue, asciigraph.White,
}

var legendColors = []lipgloss.Color{"6", "5", "3", "2", "1", "4", "7"}

// SelectColumns expands each name to the matching columns of run: an exact
// column, or every element column of a vector field ("q" selects q[0],
// q[1], ...).
func SelectColumns(run *storage.Run, names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		found := false
		for _, c := range run.Columns {
			if c == name || strings.HasPrefix(c, name+"[") {
				out = append(out, c)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", storage.ErrNoColumn, name)
		}
	}
	return out, nil
}

// Plot charts the named columns of run against sample index, with a
// colored legend below the chart.
func Plot(run *storage.Run, names []string, opts PlotOptions) (string, error) {
	if len(run.Rows) == 0 {
		return "", fmt.Errorf("viz: run %s has no samples", run.Meta.ID)
	}
	cols, err := SelectColumns(run, names)
	if err != nil {
		return "", err
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 15
	}

	series := make([][]float64, len(cols))
	for i, c := range cols {
		if series[i], err = run.Column(c); err != nil {
			return "", err
		}
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(opts.Caption),
		asciigraph.SeriesColors(seriesColors[:min(len(cols), len(seriesColors))]...),
	)

	var legend []string
	for i, c := range cols {
		color := legendColors[i%len(legendColors)]
		legend = append(legend, lipgloss.NewStyle().Foreground(color).Render("■ "+c))
	}
	return graph + "\n" + strings.Join(legend, "  ") + "\n", nil
}
