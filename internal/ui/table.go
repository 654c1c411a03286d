package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// printTable pads every column but the last to its widest cell. The first
// row is the header.
func printTable(w io.Writer, rows [][]string, style func(row, col int, cell string) lipgloss.Style) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	for i, row := range rows {
		line := ""
		for j, cell := range row {
			s := lipgloss.NewStyle().Inherit(style(i, j, cell))
			if j < len(row)-1 {
				s = s.Width(widths[j] + 2)
			}
			line += s.Render(cell)
		}
		fmt.Fprintln(w, line)
	}
}
