package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chriserin/b2b/internal/feature"
	"github.com/chriserin/b2b/internal/logging"
	"github.com/chriserin/b2b/internal/watch"
)

var debounceFlag = watch.DefaultDebounce

var watchCmd = &cobra.Command{
	Use:   "watch [features-dir]",
	Short: "Re-run the features whenever a feature file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runConfig(args)
		if err != nil {
			return err
		}
		// the UI owns the terminal, so logs need an explicit --log-level
		logger, err := newLogger(cmd.ErrOrStderr(), cfg)
		if err != nil {
			return err
		}
		if logLevelFlag == "" {
			logger = logging.Discard()
		}

		s, err := newSuite(cfg, logger)
		if err != nil {
			return err
		}

		return watch.Run(cmd.Context(), watch.Config{
			Dir:      cfg.FeaturesDir,
			Load:     feature.LoadDir,
			Run:      s.run,
			Debounce: debounceFlag,
			Logger:   logger,
		})
	},
}

func init() {
	addRunFlags(watchCmd)
	watchCmd.Flags().DurationVar(&debounceFlag, "debounce", watch.DefaultDebounce, "Wait this long after the last change before re-running")
	rootCmd.AddCommand(watchCmd)
}
