package ui

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/chriserin/b2b/internal/annotation"
	"github.com/chriserin/b2b/internal/feature"
)

// Scenario states shown by ScenarioTable besides skip reasons.
const (
	StateRuns       = "runs"
	StateFocused    = "focused"
	StateShouldFail = "shouldfail"
)

// ScenarioState is "runs", "focused", "shouldfail" or the skip reason.
func ScenarioState(s feature.Scenario) string {
	switch {
	case s.SkipReason != annotation.None:
		return s.SkipReason.String()
	case s.ExpectFailure():
		return StateShouldFail
	case s.Focused():
		return StateFocused
	}
	return StateRuns
}

// ScenarioTable prints one line per scenario with the state it resolves
// to. Scenarios whose state differs from filter are left out unless filter
// is empty.
func ScenarioTable(w io.Writer, features []feature.Feature, filter string) int {
	rows := [][]string{{"FILE", "LINE", "FEATURE", "SCENARIO", "STATE"}}
	for _, f := range features {
		for _, s := range f.Scenarios {
			state := ScenarioState(s)
			if filter != "" && state != filter {
				continue
			}
			rows = append(rows, []string{filepath.Base(f.FilePath), fmt.Sprint(s.Line), f.Title, s.Title, state})
		}
	}
	if len(rows) == 1 {
		return 0
	}

	printTable(w, rows, func(row, col int, cell string) lipgloss.Style {
		switch {
		case row == 0:
			return faintStyle
		case col != 4:
			return lipgloss.NewStyle()
		case cell == StateRuns || cell == StateFocused:
			return passStyle
		case cell == StateShouldFail:
			return expectStyle
		}
		return faintStyle
	})
	return len(rows) - 1
}
