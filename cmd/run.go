package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chriserin/b2b/internal/browser"
	"github.com/chriserin/b2b/internal/config"
	"github.com/chriserin/b2b/internal/db"
	"github.com/chriserin/b2b/internal/feature"
	"github.com/chriserin/b2b/internal/runner"
	"github.com/chriserin/b2b/internal/step"
	"github.com/chriserin/b2b/internal/steps"
	"github.com/chriserin/b2b/internal/ui"
)

var (
	verboseFlag  bool
	baseURLFlag  string
	noRecordFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run [features-dir]",
	Short: "Run every feature file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runConfig(args)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd.ErrOrStderr(), cfg)
		if err != nil {
			return err
		}
		return RunRun(cmd.Context(), cmd.OutOrStdout(), cfg, logger, verboseFlag)
	},
}

func init() {
	addRunFlags(runCmd)
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "List every completed step")
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringVar(&baseURLFlag, "base-url", "", "Resolve relative URLs against this address")
	c.Flags().BoolVar(&noRecordFlag, "no-record", false, "Do not write session recordings")
}

func runConfig(args []string) (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if len(args) > 0 {
		cfg.FeaturesDir = args[0]
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}
	if noRecordFlag {
		cfg.Record = false
	}
	return cfg, cfg.Validate()
}

// suite holds what stays alive across runs. Every run gets its own session
// pool.
type suite struct {
	cfg      config.Config
	registry *step.Registry
	logger   *slog.Logger
}

func newSuite(cfg config.Config, logger *slog.Logger) (*suite, error) {
	registry, err := steps.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("registering steps: %w", err)
	}
	return &suite{cfg: cfg, registry: registry, logger: logger}, nil
}

func (s *suite) newPool() (*browser.Pool, error) {
	return browser.NewPool(browser.Options{
		BaseURL:       s.cfg.BaseURL,
		FailureDir:    s.cfg.FailureDir,
		RecordingsDir: s.cfg.RecordingsDir,
		Record:        s.cfg.Record,
		Retries:       s.cfg.Retries,
		Logger:        s.logger,
	})
}

// run executes features and records the outcome in the history database.
func (s *suite) run(ctx context.Context, features []feature.Feature, onUpdate func(runner.Update)) runner.SuiteResult {
	pool, poolErr := s.newPool()
	if poolErr == nil {
		defer pool.Close()
	}

	r := runner.New(runner.Options{
		Registry: s.registry,
		Open: func(ctx context.Context, f feature.Feature, sc feature.Scenario) (runner.Session, error) {
			if poolErr != nil {
				return nil, poolErr
			}
			sess, err := pool.Open(ctx, f.Title, sc.Title, f.FilePath)
			if err != nil {
				return nil, err
			}
			return sess, nil
		},
		OnUpdate:    onUpdate,
		StepTimeout: s.cfg.StepTimeout.Duration,
		Logger:      s.logger,
	})
	result := r.RunSuite(ctx, features)

	if ctx.Err() == nil {
		if err := s.record(ctx, result); err != nil {
			s.logger.Warn("recording run history", "err", err)
		}
	}
	return result
}

func (s *suite) record(ctx context.Context, result runner.SuiteResult) error {
	sqlDB, err := db.Open(ctx, s.cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return db.RecordSuite(ctx, sqlDB, result)
}

func RunRun(ctx context.Context, w io.Writer, cfg config.Config, logger *slog.Logger, verbose bool) error {
	features, err := feature.LoadDir(cfg.FeaturesDir)
	if err != nil {
		return err
	}

	s, err := newSuite(cfg, logger)
	if err != nil {
		return err
	}

	rep := ui.NewReporter(w, verbose)
	result := s.run(ctx, features, rep.Update)
	ui.Summary(w, result)
	return result.Err()
}
