package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/chriserin/b2b/internal/runner"
	"github.com/chriserin/b2b/internal/step"
)

// Reporter prints runner updates as they arrive.
type Reporter struct {
	w       io.Writer
	verbose bool
}

// NewReporter returns a reporter writing to w. Verbose also lists every
// completed step.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose}
}

func (r *Reporter) Update(u runner.Update) {
	switch u.Kind {
	case runner.FeatureStarted:
		fmt.Fprintf(r.w, "%s %s\n", titleStyle.Render("Feature: "+u.Feature), faintStyle.Render(u.FilePath))
	case runner.StepCompleted:
		if r.verbose {
			fmt.Fprintf(r.w, "      %s\n", faintStyle.Render(u.Step))
		}
	case runner.ScenarioCompleted:
		if u.Result != nil {
			r.scenario(*u.Result)
		}
	case runner.FeatureCompleted:
		if u.FeatureResult != nil {
			r.feature(*u.FeatureResult)
		}
	}
}

func (r *Reporter) scenario(res runner.ScenarioResult) {
	e, failed := res.Err()
	switch {
	case !failed:
		PassLine(r.w, res.Title, res.Duration)
	case res.ExpectFailure:
		ExpectedFailLine(r.w, res.Title)
	default:
		FailLine(r.w, res.Title, res.Duration)
		Failure(r.w, e)
	}
}

func (r *Reporter) feature(fr runner.FeatureResult) {
	for _, s := range fr.Scenarios {
		if s.Title != runner.UnknownScenario {
			continue
		}
		e, _ := s.Err()
		FailLine(r.w, "feature aborted", 0)
		Failure(r.w, e)
	}
	if fr.Interrupted {
		fmt.Fprintf(r.w, "  %s\n", failStyle.Render("interrupted"))
	}
	fmt.Fprintln(r.w)
}

// Failure prints a scenario failure with its step, evidence and, for
// unmatched steps, the closest definitions.
func Failure(w io.Writer, e runner.Error) {
	if e.Step != "" && e.Step != runner.UnknownScenario {
		fmt.Fprintf(w, "      %s %s\n", faintStyle.Render("step:"), e.Step)
	}
	for _, line := range strings.Split(strings.TrimRight(e.Message, "\n"), "\n") {
		fmt.Fprintf(w, "      %s\n", line)
	}
	if e.Evidence != "" {
		fmt.Fprintf(w, "      %s %s\n", faintStyle.Render("evidence:"), e.Evidence)
	}
	if e.Kind == runner.NoMatchingStepDefinition {
		Suggestions(w, e.Step, e.Suggestions)
	}
}

// Suggestions prints the closest definitions for an unmatched sentence.
func Suggestions(w io.Writer, input string, suggestions []step.Suggestion) {
	fmt.Fprintf(w, "\n        > %s\n\n", input)
	if len(suggestions) > 0 {
		fmt.Fprintln(w, "      Did you mean one of the following?")
		fmt.Fprintln(w)
		for _, s := range suggestions {
			fmt.Fprintf(w, "        - %s\n", s.Definition.Description)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, `      Did you forget "quotation marks"?`)
}

// Summary prints skipped features and the run totals.
func Summary(w io.Writer, suite runner.SuiteResult) {
	for _, f := range suite.Skipped {
		SkipLine(w, f.Title, f.Reason.String())
	}
	if len(suite.Skipped) > 0 {
		fmt.Fprintln(w)
	}

	var passed, failed, expected int
	for _, f := range suite.Features {
		for _, s := range f.Scenarios {
			switch {
			case !s.Failed():
				passed++
			case s.ExpectFailure:
				expected++
			default:
				failed++
			}
		}
	}

	parts := []string{passStyle.Render(fmt.Sprintf("%d passed", passed))}
	if failed > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if expected > 0 {
		parts = append(parts, expectStyle.Render(fmt.Sprintf("%d failed as expected", expected)))
	}
	if len(suite.Skipped) > 0 {
		parts = append(parts, faintStyle.Render(fmt.Sprintf("%d features skipped", len(suite.Skipped))))
	}
	fmt.Fprintf(w, "%s %s\n", strings.Join(parts, ", "), faintStyle.Render(formatDuration(suite.Duration)))
	fmt.Fprintln(w, faintStyle.Render("run "+suite.RunID.String()))
}
