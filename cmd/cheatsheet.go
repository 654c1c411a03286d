package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chriserin/b2b/internal/steps"
	"github.com/chriserin/b2b/internal/ui"
)

var cheatsheetCmd = &cobra.Command{
	Use:   "cheatsheet [query]",
	Short: "List the available steps",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		width := 0
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
		return RunCheatsheet(cmd.OutOrStdout(), query, width)
	},
}

func init() {
	rootCmd.AddCommand(cheatsheetCmd)
}

// RunCheatsheet prints every step description, filtered by query.
func RunCheatsheet(w io.Writer, query string, width int) error {
	var descriptions []string
	for _, d := range steps.Definitions() {
		descriptions = append(descriptions, d.Description)
	}
	return ui.Cheatsheet(w, descriptions, query, width)
}
