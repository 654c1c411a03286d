package watch

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chriserin/b2b/internal/feature"
	"github.com/chriserin/b2b/internal/runner"
)

// Suite runs loaded features, reporting to onUpdate.
type Suite func(ctx context.Context, features []feature.Feature, onUpdate func(runner.Update)) runner.SuiteResult

type runStartedMsg struct{ gen int }

type updateMsg struct {
	gen    int
	update runner.Update
}

type suiteDoneMsg struct {
	gen   int
	suite runner.SuiteResult
}

type loadErrMsg struct {
	gen int
	err error
}

// controller reloads and re-runs the suite on every trigger. A trigger that
// arrives mid-run cancels the run in flight.
type controller struct {
	dir    string
	load   func(dir string) ([]feature.Feature, error)
	run    Suite
	events chan tea.Msg
	logger *slog.Logger
}

func (c *controller) loop(ctx context.Context, triggers ...<-chan struct{}) {
	merged := make(chan struct{}, 1)
	for _, t := range triggers {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-t:
					if !ok {
						return
					}
					select {
					case merged <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	gen := 0
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	start := func() {
		if cancel != nil {
			cancel()
			<-done
		}
		gen++
		var runCtx context.Context
		runCtx, cancel = context.WithCancel(ctx)
		done = make(chan struct{})
		go func(gen int) {
			defer close(done)
			c.runOnce(runCtx, gen)
		}(gen)
	}

	start()
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return
		case <-merged:
			c.logger.Debug("re-running suite")
			start()
		}
	}
}

func (c *controller) runOnce(ctx context.Context, gen int) {
	features, err := c.load(c.dir)
	if err != nil {
		c.send(ctx, loadErrMsg{gen: gen, err: err})
		return
	}
	c.send(ctx, runStartedMsg{gen: gen})
	suite := c.run(ctx, features, func(u runner.Update) {
		c.send(ctx, updateMsg{gen: gen, update: u})
	})
	if ctx.Err() != nil {
		return
	}
	c.send(ctx, suiteDoneMsg{gen: gen, suite: suite})
}

func (c *controller) send(ctx context.Context, msg tea.Msg) {
	select {
	case c.events <- msg:
	case <-ctx.Done():
	}
}
