package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chriserin/b2b/internal/feature"
	"github.com/chriserin/b2b/internal/runner"
	"github.com/chriserin/b2b/internal/ui"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Model renders one suite run at a time from runner updates.
type Model struct {
	dir     string
	events  <-chan tea.Msg
	rerun   chan<- struct{}
	spinner spinner.Model

	gen      int
	running  bool
	feature  string
	scenario string
	step     string
	report   *strings.Builder
	reporter *ui.Reporter
	summary  string
	loadErr  error
	runs     int
	lastRun  time.Time
}

func newModel(dir string, events <-chan tea.Msg, rerun chan<- struct{}) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	report := &strings.Builder{}
	return Model{
		dir:      dir,
		events:   events,
		rerun:    rerun,
		spinner:  sp,
		report:   report,
		reporter: ui.NewReporter(report, false),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

// listen waits for the next message from the controller.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			select {
			case m.rerun <- struct{}{}:
			default:
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runStartedMsg:
		m.gen = msg.gen
		m.running = true
		m.loadErr = nil
		m.report.Reset()
		m.summary = ""
		m.feature, m.scenario, m.step = "", "", ""
		return m, m.listen()

	case loadErrMsg:
		if msg.gen >= m.gen {
			m.gen = msg.gen
			m.running = false
			m.loadErr = msg.err
		}
		return m, m.listen()

	case updateMsg:
		if msg.gen == m.gen {
			m.apply(msg.update)
		}
		return m, m.listen()

	case suiteDoneMsg:
		if msg.gen == m.gen {
			m.running = false
			m.runs++
			m.lastRun = time.Now()
			var b strings.Builder
			ui.Summary(&b, msg.suite)
			m.summary = b.String()
		}
		return m, m.listen()
	}
	return m, nil
}

func (m *Model) apply(u runner.Update) {
	m.reporter.Update(u)
	switch u.Kind {
	case runner.FeatureStarted:
		m.feature = u.Feature
	case runner.ScenarioStarted:
		m.scenario = u.Scenario
		m.step = ""
	case runner.StepStarted:
		m.step = u.Step
	case runner.ScenarioCompleted:
		m.scenario, m.step = "", ""
	case runner.FeatureCompleted:
		m.feature = ""
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("b2b watch") + " " + helpStyle.Render(m.dir) + "\n\n")

	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("could not load features:") + "\n")
		b.WriteString(m.loadErr.Error() + "\n\n")
	}

	b.WriteString(m.report.String())

	if m.running {
		current := m.feature
		if m.scenario != "" {
			current += " › " + m.scenario
		}
		if m.step != "" {
			current += " › " + m.step
		}
		b.WriteString(m.spinner.View() + " " + current + "\n")
	}
	if m.summary != "" {
		b.WriteString(m.summary)
	}

	help := "r re-run · q quit"
	if m.runs > 0 {
		help = fmt.Sprintf("run %d finished %s · %s", m.runs, m.lastRun.Format("15:04:05"), help)
	}
	b.WriteString("\n" + helpStyle.Render(help) + "\n")
	return b.String()
}

type Config struct {
	Dir      string
	Load     func(dir string) ([]feature.Feature, error)
	Run      Suite
	Debounce time.Duration
	Input    io.Reader
	Output   io.Writer
	Logger   *slog.Logger
}

// Run watches cfg.Dir and re-runs the suite on every change until the user
// quits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Load == nil {
		cfg.Load = feature.LoadDir
	}

	w, err := NewWatcher(cfg.Dir, cfg.Debounce, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tea.Msg)
	rerun := make(chan struct{}, 1)
	c := &controller{dir: cfg.Dir, load: cfg.Load, run: cfg.Run, events: events, logger: logger}

	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("watcher stopped", "err", err)
		}
	}()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		c.loop(ctx, w.Changes(), rerun)
	}()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}
	_, err = tea.NewProgram(newModel(cfg.Dir, events, rerun), opts...).Run()

	cancel()
	<-loopDone
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("running watch ui: %w", err)
	}
	return nil
}
