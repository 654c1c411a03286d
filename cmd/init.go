package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chriserin/b2b/internal/config"
	"github.com/chriserin/b2b/internal/db"
)

var forceFlag bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize b2b in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInit(cmd.Context(), cmd.OutOrStdout(), forceFlag)
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceFlag, "force", false, "Recreate the features directory")
	rootCmd.AddCommand(initCmd)
}

const exampleFeature = `Feature: Example
  Scenario: The home page loads
    Given I open example.com
    Then I see "Example Domain"
`

func RunInit(ctx context.Context, w io.Writer, force bool) error {
	cfg := config.Default()

	// features/ directory
	_, err := os.Stat(cfg.FeaturesDir)
	featuresExist := err == nil
	if featuresExist && force {
		if err := os.RemoveAll(cfg.FeaturesDir); err != nil {
			return fmt.Errorf("removing %s directory: %w", cfg.FeaturesDir, err)
		}
	}
	if err := os.MkdirAll(cfg.FeaturesDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", cfg.FeaturesDir, err)
	}
	switch {
	case featuresExist && force:
		fmt.Fprintf(w, "%s/ recreated\n", cfg.FeaturesDir)
	case featuresExist:
		fmt.Fprintf(w, "%s/ already exists\n", cfg.FeaturesDir)
	default:
		fmt.Fprintf(w, "%s/ created\n", cfg.FeaturesDir)
	}

	// example feature, only in an empty directory
	entries, err := os.ReadDir(cfg.FeaturesDir)
	if err != nil {
		return fmt.Errorf("reading %s directory: %w", cfg.FeaturesDir, err)
	}
	if len(entries) == 0 {
		example := filepath.Join(cfg.FeaturesDir, "example.feature")
		if err := os.WriteFile(example, []byte(exampleFeature), 0o644); err != nil {
			return fmt.Errorf("writing example feature: %w", err)
		}
		fmt.Fprintf(w, "%s created\n", filepath.ToSlash(example))
	}

	// config
	if _, err := os.Stat(config.FileName); err == nil {
		fmt.Fprintf(w, "%s already exists\n", config.FileName)
	} else {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		if err := os.WriteFile(config.FileName, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", config.FileName, err)
		}
		fmt.Fprintf(w, "%s created\n", config.FileName)
	}

	// history database
	_, err = os.Stat(cfg.HistoryDB)
	dbExists := err == nil
	sqlDB, err := db.Open(ctx, cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	sqlDB.Close()
	if dbExists {
		fmt.Fprintf(w, "%s already exists\n", cfg.HistoryDB)
	} else {
		fmt.Fprintf(w, "%s created\n", cfg.HistoryDB)
	}

	// gitignore
	msgs, err := ensureGitignore(filepath.Dir(cfg.HistoryDB)+"/", cfg.RecordingsDir+"/", cfg.FailureDir+"/")
	if err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	for _, msg := range msgs {
		fmt.Fprintln(w, msg)
	}

	return nil
}

// ensureGitignore appends the entries missing from .gitignore, creating it
// if needed.
func ensureGitignore(entries ...string) ([]string, error) {
	data, err := os.ReadFile(".gitignore")
	created := os.IsNotExist(err)
	if err != nil && !created {
		return nil, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var msgs []string
	if created {
		msgs = append(msgs, ".gitignore created")
	}
	content := string(data)
	for _, entry := range entries {
		if present[entry] {
			msgs = append(msgs, entry+" already in .gitignore")
			continue
		}
		if len(content) > 0 && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += entry + "\n"
		present[entry] = true
		msgs = append(msgs, entry+" added to .gitignore")
	}

	if content == string(data) && !created {
		return msgs, nil
	}
	if err := os.WriteFile(".gitignore", []byte(content), 0o644); err != nil {
		return nil, err
	}
	return msgs, nil
}
