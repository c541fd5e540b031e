package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/banshee-data/calibration.report/internal/db"
)

var borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// WriteHistory prints recorded runs as a table, newest first.
func WriteHistory(w io.Writer, runs []db.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs.")
		return err
	}

	t := newTable("RUN", "STARTED", "DURATION", "LOG", "REFERENCE", "VERDICTS", "STATUS")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		ref := "-"
		if r.Reference != nil {
			ref = fmt.Sprintf("%g / %g / %g", r.Reference.Temperature, r.Reference.Humidity, r.Reference.Monoxide)
		}
		status := string(r.Status)
		if r.Error != "" {
			status += ": " + r.Error
		}
		t.Row(r.ID, r.StartedAt.Local().Format(time.DateTime), duration, r.LogPath, ref, strconv.Itoa(r.Verdicts), status)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteRunVerdicts prints the stored emissions of one run in emission order.
func WriteRunVerdicts(w io.Writer, rows []db.VerdictRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No verdicts recorded for this run.")
		return err
	}

	t := newTable("#", "SENSOR", "FAMILY", "READINGS", "VERDICT")
	for _, v := range rows {
		t.Row(strconv.Itoa(v.Seq+1), v.SensorID, string(v.Family), strconv.Itoa(v.Readings), string(v.Verdict))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
