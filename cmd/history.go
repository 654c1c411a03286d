package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chriserin/b2b/internal/db"
	"github.com/chriserin/b2b/internal/ui"
)

var limitFlag int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return RunHistory(cmd.Context(), cmd.OutOrStdout(), cfg.HistoryDB, limitFlag)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&limitFlag, "limit", "n", 10, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens an existing history database. It does not create one.
func openHistory(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no history at %s; run `b2b run` first", path)
	}
	sqlDB, err := db.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return sqlDB, nil
}

func RunHistory(ctx context.Context, w io.Writer, path string, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	sqlDB, err := openHistory(ctx, path)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	runs, err := db.RecentRuns(ctx, sqlDB, limit)
	if err != nil {
		return err
	}
	ui.RunTable(w, runs)
	return nil
}
