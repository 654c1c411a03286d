package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chriserin/b2b/internal/db"
	"github.com/chriserin/b2b/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the failures of a run (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		return RunShow(cmd.Context(), cmd.OutOrStdout(), cfg.HistoryDB, id)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// RunShow prints the failures of the run whose id starts with rawID, or of
// the latest run when rawID is empty.
func RunShow(ctx context.Context, w io.Writer, path, rawID string) error {
	sqlDB, err := openHistory(ctx, path)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	runs, err := db.RecentRuns(ctx, sqlDB, 1)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	id := runs[0].ID
	if rawID != "" {
		if id, err = db.FindRun(ctx, sqlDB, rawID); err != nil {
			return err
		}
	}

	failures, err := db.Failures(ctx, sqlDB, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s\n\n", id)
	if len(failures) == 0 {
		fmt.Fprintln(w, "no failures")
		return nil
	}
	ui.FailureList(w, failures)
	return nil
}
