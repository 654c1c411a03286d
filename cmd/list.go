package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chriserin/b2b/internal/feature"
	"github.com/chriserin/b2b/internal/ui"
)

var stateFlag string

var listCmd = &cobra.Command{
	Use:   "list [features-dir]",
	Short: "List scenarios and whether they will run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cfg.FeaturesDir
		if len(args) > 0 {
			dir = args[0]
		}
		return RunList(cmd.OutOrStdout(), dir, stateFlag)
	},
}

func init() {
	listCmd.Flags().StringVar(&stateFlag, "state", "", "Filter by state (runs, focused, shouldfail or a skip reason)")
	rootCmd.AddCommand(listCmd)
}

func RunList(w io.Writer, dir, state string) error {
	features, err := feature.LoadDir(dir)
	if err != nil {
		return err
	}
	if ui.ScenarioTable(w, features, state) == 0 && state != "" {
		fmt.Fprintf(w, "no scenarios in state %s\n", state)
	}
	return nil
}
