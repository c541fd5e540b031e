package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/calibration.report/internal/fsutil"
)

// NewPlot builds a bar chart of every bucket/verdict count, grouped by bucket.
func NewPlot(st Stats, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "sensors"
	p.Y.Min = 0

	var (
		labels []string
		values plotter.Values
	)
	for _, b := range st.Buckets {
		for _, v := range b.Verdicts {
			labels = append(labels, fmt.Sprintf("%s\n%s", b.Prefix, v))
			values = append(values, float64(b.Counts[v]))
		}
	}
	if len(values) == 0 {
		return p, nil
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("build bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xff}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// WritePNG renders the chart as a PNG image to w.
func WritePNG(w io.Writer, st Stats, title string) error {
	p, err := NewPlot(st, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render png report: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the PNG chart to path atomically.
func SavePNG(fsys fsutil.FileSystem, path string, st Stats, title string) error {
	return fsutil.WriteAtomic(fsys, path, 0644, func(w io.Writer) error {
		return WritePNG(w, st, title)
	})
}
