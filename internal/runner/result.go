package runner

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chriserin/b2b/internal/annotation"
	"github.com/chriserin/b2b/internal/result"
	"github.com/chriserin/b2b/internal/step"
)

var ErrSuiteFailed = errors.New("suite failed")

// UnknownScenario names failures that happen outside any scenario's steps.
const UnknownScenario = "unknown"

type ErrorKind int

const (
	NoMatchingStepDefinition ErrorKind = iota + 1
	StepExecutionFailure
	UnexpectedException
)

func (k ErrorKind) String() string {
	switch k {
	case NoMatchingStepDefinition:
		return "no-matching-step-definition"
	case StepExecutionFailure:
		return "step-execution-failure"
	case UnexpectedException:
		return "unexpected-exception"
	}
	return "unknown"
}

// Error is a failed scenario. All three kinds share this shape.
type Error struct {
	Kind          ErrorKind
	Message       string
	ScenarioTitle string
	Step          string
	Evidence      string
	Suggestions   []step.Suggestion
}

func (e Error) Error() string {
	return e.Message
}

type ScenarioResult struct {
	Title         string
	ExpectFailure bool
	Duration      time.Duration
	Outcome       result.Result[struct{}, Error]
}

func (r ScenarioResult) Err() (Error, bool) {
	return r.Outcome.Failure()
}

func (r ScenarioResult) Failed() bool {
	return !r.Outcome.IsOk()
}

// Unexpected reports a failure of a scenario not tagged @shouldfail.
func (r ScenarioResult) Unexpected() bool {
	return r.Failed() && !r.ExpectFailure
}

func succeeded(title string, expectFailure bool) ScenarioResult {
	return ScenarioResult{Title: title, ExpectFailure: expectFailure, Outcome: result.Ok[struct{}, Error](struct{}{})}
}

func failed(title string, expectFailure bool, e Error) ScenarioResult {
	return ScenarioResult{Title: title, ExpectFailure: expectFailure, Outcome: result.Fail[struct{}](e)}
}

type FeatureResult struct {
	Title     string
	FilePath  string
	Duration  time.Duration
	Scenarios []ScenarioResult
	// Interrupted is set when the context was cancelled before every
	// scenario ran.
	Interrupted bool
	Success     bool
}

// Failures counts the unexpected failures.
func (f FeatureResult) Failures() int {
	n := 0
	for _, s := range f.Scenarios {
		if s.Unexpected() {
			n++
		}
	}
	return n
}

type SkippedFeature struct {
	Title    string
	FilePath string
	Reason   annotation.SkipReason
}

type SuiteResult struct {
	RunID    uuid.UUID
	Started  time.Time
	Duration time.Duration
	Features []FeatureResult
	Skipped  []SkippedFeature
	Success  bool
}

// Err returns ErrSuiteFailed unless every feature succeeded.
func (s SuiteResult) Err() error {
	if s.Success {
		return nil
	}
	return ErrSuiteFailed
}
