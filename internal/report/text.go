package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	labelStyle   = lipgloss.NewStyle().Width(20)
	countStyle   = lipgloss.NewStyle().Width(8).Align(lipgloss.Right)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// WriteText prints one section per bucket with the count and in-bucket
// percentage of each verdict. Colours are only emitted on a capable terminal.
func WriteText(w io.Writer, st Stats) error {
	for _, b := range st.Buckets {
		if _, err := fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%s:", b.Name))+" "+dimStyle.Render(fmt.Sprintf("(%d sensors)", b.Total))); err != nil {
			return err
		}
		for _, v := range b.Verdicts {
			line := fmt.Sprintf("  %s%s  (%6.2f%%)",
				labelStyle.Render(string(v)+":"),
				countStyle.Render(fmt.Sprintf("%d", b.Counts[v])),
				b.Percent(v))
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	if st.Other > 0 {
		if _, err := fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Unrecognised sensor identifiers: %d", st.Other))); err != nil {
			return err
		}
	}
	return nil
}
