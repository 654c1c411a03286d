package ui

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FilterSteps keeps the descriptions that fuzzily contain query, in their
// original order. An empty query keeps everything.
func FilterSteps(descriptions []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return descriptions
	}
	ranks := fuzzy.RankFindFold(query, descriptions)
	slices.SortFunc(ranks, func(a, b fuzzy.Rank) int {
		return a.OriginalIndex - b.OriginalIndex
	})
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out
}

// CheatsheetMarkdown lists descriptions as a markdown document.
func CheatsheetMarkdown(descriptions []string) string {
	var b strings.Builder
	b.WriteString("# Steps\n\n")
	b.WriteString("Start a step with Given, When, Then or And. Wrap values with spaces in \"quotes\".\n\n")
	b.WriteString("Words after the keyword are case-sensitive: `The url contains {text}` is written `Then the url contains \"/done\"`.\n\n")
	for _, d := range descriptions {
		fmt.Fprintf(&b, "- `%s`\n", d)
	}
	return b.String()
}

// Cheatsheet renders the step list for a terminal. width 0 disables
// wrapping.
func Cheatsheet(w io.Writer, descriptions []string, query string, width int) error {
	matched := FilterSteps(descriptions, query)
	if len(matched) == 0 {
		fmt.Fprintf(w, "no steps match %q\n", query)
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(CheatsheetMarkdown(matched))
	if err != nil {
		return fmt.Errorf("rendering cheatsheet: %w", err)
	}
	fmt.Fprint(w, out)
	return nil
}
