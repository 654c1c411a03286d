package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/chriserin/b2b/internal/db"
)

const timeLayout = "2006-01-02 15:04:05"

// RunTable prints recorded runs, newest first.
func RunTable(w io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	rows := [][]string{{"STARTED", "RESULT", "PASSED", "FAILED", "FEATURES", "SKIPPED", "DURATION", "RUN"}}
	for _, r := range runs {
		result := "pass"
		if !r.Success {
			result = "fail"
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format(timeLayout),
			result,
			fmt.Sprint(r.Passed),
			fmt.Sprint(r.Failed),
			fmt.Sprint(r.Features),
			fmt.Sprint(r.Skipped),
			r.Duration.String(),
			r.ID,
		})
	}

	printTable(w, rows, func(row, col int, cell string) lipgloss.Style {
		switch {
		case row == 0:
			return faintStyle
		case col == 1 && cell == "fail":
			return failStyle
		case col == 1:
			return passStyle
		}
		return lipgloss.NewStyle()
	})
}

// FailureList prints the failed scenarios of one run.
func FailureList(w io.Writer, failures []db.ScenarioRecord) {
	for _, f := range failures {
		fmt.Fprintf(w, "%s %s\n", failStyle.Render(failMark), titleStyle.Render(f.Feature+": "+f.Title))
		if f.Step != "" {
			fmt.Fprintf(w, "      %s %s\n", faintStyle.Render("step:"), f.Step)
		}
		fmt.Fprintf(w, "      %s\n", f.Message)
		if f.Evidence != "" {
			fmt.Fprintf(w, "      %s %s\n", faintStyle.Render("evidence:"), f.Evidence)
		}
	}
}
