package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	expectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

const (
	passMark   = "✓"
	failMark   = "✗"
	expectMark = "~"
	skipMark   = "-"
)

func PassLine(w io.Writer, title string, d time.Duration) {
	fmt.Fprintf(w, "  %s %s %s\n", passStyle.Render(passMark), title, faintStyle.Render(formatDuration(d)))
}

func FailLine(w io.Writer, title string, d time.Duration) {
	fmt.Fprintf(w, "  %s %s %s\n", failStyle.Render(failMark), failStyle.Render(title), faintStyle.Render(formatDuration(d)))
}

func ExpectedFailLine(w io.Writer, title string) {
	fmt.Fprintf(w, "  %s %s %s\n", expectStyle.Render(expectMark), title, faintStyle.Render("(failed as expected)"))
}

func SkipLine(w io.Writer, title, reason string) {
	fmt.Fprintf(w, "%s %s %s\n", faintStyle.Render(skipMark), title, faintStyle.Render("("+reason+")"))
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Second:
		return fmt.Sprintf("(%dms)", d.Milliseconds())
	}
	return fmt.Sprintf("(%.1fs)", d.Seconds())
}
