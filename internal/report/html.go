package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/calibration.report/internal/fsutil"
)

// WriteHTML renders a page with one verdict bar chart per bucket.
func WriteHTML(w io.Writer, st Stats, subtitle string) error {
	page := components.NewPage()
	page.SetPageTitle("Calibration Results")

	for _, b := range st.Buckets {
		x := make([]string, 0, len(b.Verdicts))
		y := make([]opts.BarData, 0, len(b.Verdicts))
		for _, v := range b.Verdicts {
			x = append(x, string(v))
			y = append(y, opts.BarData{Value: b.Counts[v]})
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: b.Name, Subtitle: fmt.Sprintf("%s sensors=%d", subtitle, b.Total)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(x).
			AddSeries("sensors", y,
				charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			)
		page.AddCharts(bar)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// SaveHTML writes the HTML report to path atomically.
func SaveHTML(fsys fsutil.FileSystem, path string, st Stats, subtitle string) error {
	return fsutil.WriteAtomic(fsys, path, 0644, func(w io.Writer) error {
		return WriteHTML(w, st, subtitle)
	})
}
