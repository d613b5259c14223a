package render

import (
	"path/filepath"

	"emperror.dev/errors"
	"github.com/c2h5oh/datasize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/voluzi/procscope/pkg/metrics"
)

// Charts are drawn at 1920x1080 pixels at 96 dpi.
const (
	chartWidth  = 20 * vg.Inch
	chartHeight = 11.25 * vg.Inch
)

// Series is one line of a chart.
type Series struct {
	Label string
	Value func(metrics.Snapshot) float64
}

// Chart describes one SVG line chart over the sample index.
type Chart struct {
	File   string
	Title  string
	YLabel string
	Series []Series
}

func megabytes(v uint64) float64 {
	return float64(v) / float64(datasize.MB)
}

func optionalMegabytes(get func(metrics.Snapshot) *uint64) func(metrics.Snapshot) float64 {
	return func(s metrics.Snapshot) float64 {
		return megabytes(metrics.ValueOr(get(s), 0))
	}
}

var (
	MemoryChart = Chart{
		File:   "memory.svg",
		Title:  "Memory Usage",
		YLabel: "MB",
		Series: []Series{
			{"vms", func(s metrics.Snapshot) float64 { return megabytes(s.Memory.VMS) }},
			{"rss", func(s metrics.Snapshot) float64 { return megabytes(s.Memory.RSS) }},
			{"shared", optionalMegabytes(func(s metrics.Snapshot) *uint64 { return s.Memory.Shared })},
			{"text", optionalMegabytes(func(s metrics.Snapshot) *uint64 { return s.Memory.Text })},
			{"data", optionalMegabytes(func(s metrics.Snapshot) *uint64 { return s.Memory.Data })},
		},
	}

	CPUTimeChart = Chart{
		File:   "cpu_time.svg",
		Title:  "CPU Time",
		YLabel: "seconds",
		Series: []Series{
			{"user", func(s metrics.Snapshot) float64 { return s.CPUTime.User }},
			{"system", func(s metrics.Snapshot) float64 { return s.CPUTime.System }},
		},
	}

	CPUUsageChart = Chart{
		File:   "cpu_usage.svg",
		Title:  "CPU Usage",
		YLabel: "%",
		Series: []Series{
			{"usage", func(s metrics.Snapshot) float64 { return s.CPUUsage }},
		},
	}

	IOChart = Chart{
		File:   "io.svg",
		Title:  "I/O",
		YLabel: "MB",
		Series: []Series{
			{"bytes_written", func(s metrics.Snapshot) float64 { return megabytes(s.IO.BytesWritten) }},
			{"bytes_read", func(s metrics.Snapshot) float64 { return megabytes(s.IO.BytesRead) }},
			{"disk_written", optionalMegabytes(func(s metrics.Snapshot) *uint64 { return s.IO.DiskWritten })},
			{"disk_read", optionalMegabytes(func(s metrics.Snapshot) *uint64 { return s.IO.DiskRead })},
			{"syscall_written (thousands)", func(s metrics.Snapshot) float64 {
				return float64(metrics.ValueOr(s.IO.SyscallWritten, 0)) / 1000
			}},
			{"syscall_read (thousands)", func(s metrics.Snapshot) float64 {
				return float64(metrics.ValueOr(s.IO.SyscallRead, 0)) / 1000
			}},
		},
	}
)

// Plot builds the gonum plot of c over snapshots.
func (c Chart) Plot(snapshots []metrics.Snapshot) (*plot.Plot, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "sample"
	p.Y.Label.Text = c.YLabel
	p.Y.Min = 0
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, series := range c.Series {
		points := make(plotter.XYs, len(snapshots))
		for x, s := range snapshots {
			points[x].X = float64(x)
			points[x].Y = series.Value(s)
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return nil, errors.WrapIfWithDetails(err, "building series", "chart", c.Title, "series", series.Label)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(series.Label, line)
	}
	return p, nil
}

// Save renders c over snapshots into path. The image format follows the file
// extension.
func (c Chart) Save(path string, snapshots []metrics.Snapshot) error {
	p, err := c.Plot(snapshots)
	if err != nil {
		return err
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return errors.WrapIfWithDetails(err, "saving chart", "path", path)
	}
	return nil
}

// ExportCharts saves every chart into dir under its own file name and returns
// the written paths.
func ExportCharts(dir string, snapshots []metrics.Snapshot, charts ...Chart) ([]string, error) {
	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.File)
		if err := c.Save(path, snapshots); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
