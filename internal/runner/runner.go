// Package runner executes features scenario by scenario, step by step, and
// reports progress as a stream of lifecycle updates.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/chriserin/b2b/internal/annotation"
	"github.com/chriserin/b2b/internal/feature"
	"github.com/chriserin/b2b/internal/step"
)

// Session is the per-scenario resource handed to step executors.
type Session interface {
	// Snapshot saves evidence of the current state and returns its path, or
	// "" when there is nothing to save.
	Snapshot(ctx context.Context, name string) (string, error)
	Close(failed bool) error
}

type OpenFunc func(ctx context.Context, f feature.Feature, s feature.Scenario) (Session, error)

type Options struct {
	Registry *step.Registry
	// Open acquires the session for one scenario. Without it steps run with
	// no session.
	Open     OpenFunc
	OnUpdate func(Update)
	// StepTimeout bounds each step when positive.
	StepTimeout time.Duration
	Logger      *slog.Logger
}

type Runner struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, logger: logger}
}

func (r *Runner) emit(u Update) {
	if r.opts.OnUpdate != nil {
		r.opts.OnUpdate(u)
	}
}

// RunSuite runs every feature that is not skipped, in order.
func (r *Runner) RunSuite(ctx context.Context, features []feature.Feature) SuiteResult {
	suite := SuiteResult{RunID: uuid.New(), Started: time.Now(), Success: true}
	log := r.logger.With("run", suite.RunID.String())
	log.Info("suite started", "features", len(features))

	for _, f := range features {
		if !annotation.Runnable(f.SkipReason, annotation.None) {
			log.Debug("feature skipped", "feature", f.Title, "reason", f.SkipReason.String())
			suite.Skipped = append(suite.Skipped, SkippedFeature{Title: f.Title, FilePath: f.FilePath, Reason: f.SkipReason})
			continue
		}
		if ctx.Err() != nil {
			suite.Success = false
			break
		}
		fr := r.RunFeature(ctx, f)
		suite.Features = append(suite.Features, fr)
		if !fr.Success {
			suite.Success = false
		}
	}

	suite.Duration = time.Since(suite.Started)
	log.Info("suite finished", "success", suite.Success, "duration", suite.Duration)
	return suite
}

// RunFeature runs the feature's active scenarios. A failing scenario does
// not stop the ones after it; a failure outside any step does.
func (r *Runner) RunFeature(ctx context.Context, f feature.Feature) FeatureResult {
	start := time.Now()
	fr := FeatureResult{Title: f.Title, FilePath: f.FilePath}
	log := r.logger.With("feature", f.Title)
	r.emit(Update{Kind: FeatureStarted, Feature: f.Title, FilePath: f.FilePath})

	func() {
		// open is the scenario whose started update has no completed one yet.
		var open *feature.Scenario
		defer func() {
			if v := recover(); v != nil {
				log.Error("feature aborted", "panic", v)
				title := UnknownScenario
				if open != nil {
					title = open.Title
				}
				res := aborted(title, fmt.Sprint(v), debug.Stack())
				fr.Scenarios = append(fr.Scenarios, res)
				if open != nil {
					r.emitCompleted(f, res)
				}
			}
		}()
		for _, sc := range f.Active() {
			if ctx.Err() != nil {
				fr.Interrupted = true
				return
			}
			res, err := r.withSession(ctx, f, sc, func(sess Session) ScenarioResult {
				open = &sc
				res := r.runScenario(ctx, f, sc, sess)
				open = nil
				completed := res
				r.emit(Update{Kind: ScenarioCompleted, Feature: f.Title, FilePath: f.FilePath, Scenario: sc.Title, Result: &completed, Duration: res.Duration})
				return res
			})
			if err != nil {
				log.Error("feature aborted", "scenario", sc.Title, "err", err)
				fr.Scenarios = append(fr.Scenarios, aborted(UnknownScenario, err.Error(), debug.Stack()))
				return
			}
			fr.Scenarios = append(fr.Scenarios, res)
		}
	}()

	fr.Success = !fr.Interrupted && fr.Failures() == 0
	fr.Duration = time.Since(start)
	log.Debug("feature finished", "success", fr.Success, "duration", fr.Duration)

	completed := fr
	r.emit(Update{Kind: FeatureCompleted, Feature: f.Title, FilePath: f.FilePath, FeatureResult: &completed, Duration: fr.Duration})
	return fr
}

func aborted(title, message string, stack []byte) ScenarioResult {
	return failed(title, false, Error{
		Kind:          UnexpectedException,
		Message:       fmt.Sprintf("%s\n\nStack trace:\n%s", message, stack),
		ScenarioTitle: title,
		Step:          UnknownScenario,
	})
}

// emitCompleted closes out a scenario whose run was cut short by a panic. A
// second panic from the update handler is logged and dropped.
func (r *Runner) emitCompleted(f feature.Feature, res ScenarioResult) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("update handler failed", "scenario", res.Title, "panic", v)
		}
	}()
	completed := res
	r.emit(Update{Kind: ScenarioCompleted, Feature: f.Title, FilePath: f.FilePath, Scenario: res.Title, Result: &completed})
}

// withSession acquires the scenario's session, runs fn and releases the
// session on every exit path. A session whose scenario did not finish
// cleanly is closed as failed.
func (r *Runner) withSession(ctx context.Context, f feature.Feature, sc feature.Scenario, fn func(Session) ScenarioResult) (res ScenarioResult, err error) {
	var sess Session
	if r.opts.Open != nil {
		sess, err = r.opts.Open(ctx, f, sc)
		if err != nil {
			return res, fmt.Errorf("opening session for %q: %w", sc.Title, err)
		}
	}

	done := false
	defer func() {
		if sess == nil {
			return
		}
		if cerr := sess.Close(!done || res.Failed()); cerr != nil {
			r.logger.Warn("closing session", "scenario", sc.Title, "err", cerr)
		}
	}()

	res = fn(sess)
	done = true
	return res, nil
}

func (r *Runner) runScenario(ctx context.Context, f feature.Feature, sc feature.Scenario, sess Session) ScenarioResult {
	start := time.Now()
	log := r.logger.With("feature", f.Title, "scenario", sc.Title)
	r.emit(Update{Kind: ScenarioStarted, Feature: f.Title, FilePath: f.FilePath, Scenario: sc.Title})

	res := succeeded(sc.Title, sc.ExpectFailure())
	stepCtx := step.Context{FeatureFilePath: f.FilePath, ScenarioTitle: sc.Title}
	if sess != nil {
		stepCtx.Session = sess
	}

	for _, text := range sc.Steps {
		r.emit(Update{Kind: StepStarted, Feature: f.Title, FilePath: f.FilePath, Scenario: sc.Title, Step: text})

		if e, ok := r.runStep(ctx, stepCtx, text); !ok {
			e.ScenarioTitle = sc.Title
			e.Step = text
			if e.Evidence == "" && e.Kind != NoMatchingStepDefinition && sess != nil {
				e.Evidence = r.snapshot(ctx, sess, sc.Title)
			}
			log.Debug("scenario failed", "step", text, "kind", e.Kind.String(), "expected", sc.ExpectFailure())
			res = failed(sc.Title, sc.ExpectFailure(), e)
			break
		}

		r.emit(Update{Kind: StepCompleted, Feature: f.Title, FilePath: f.FilePath, Scenario: sc.Title, Step: text})
	}

	res.Duration = time.Since(start)
	return res
}

func (r *Runner) snapshot(ctx context.Context, sess Session, name string) string {
	path, err := sess.Snapshot(ctx, name)
	if err != nil {
		r.logger.Warn("saving snapshot", "scenario", name, "err", err)
		return ""
	}
	return path
}

func (r *Runner) runStep(ctx context.Context, sc step.Context, text string) (Error, bool) {
	if r.opts.Registry == nil {
		return Error{Kind: NoMatchingStepDefinition, Message: noMatchMessage(text)}, false
	}
	found := r.opts.Registry.Find(text)
	m, ok := found.Value()
	if !ok {
		nm, _ := found.Failure()
		return Error{
			Kind:        NoMatchingStepDefinition,
			Message:     noMatchMessage(text),
			Suggestions: step.Suggest(nm.Input, nm.Failures, step.DefaultSuggestions),
		}, false
	}

	if r.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.StepTimeout)
		defer cancel()
	}

	outcome, panicked := execute(ctx, m, sc)
	if panicked != nil {
		return *panicked, false
	}
	if f, bad := outcome.Failure(); bad {
		return Error{Kind: StepExecutionFailure, Message: f.Message, Evidence: f.Evidence}, false
	}
	return Error{}, true
}

func noMatchMessage(text string) string {
	return `No matching step definition found for: "` + text + `"`
}

// execute runs the matched executor, turning a panic into an
// UnexpectedException.
func execute(ctx context.Context, m step.Match, sc step.Context) (out step.Outcome, panicked *Error) {
	defer func() {
		if v := recover(); v != nil {
			panicked = &Error{
				Kind:    UnexpectedException,
				Message: fmt.Sprintf("Step execution failed: %v\n\nStack trace:\n%s", v, debug.Stack()),
			}
		}
	}()
	return m.Execute(ctx, sc), nil
}
