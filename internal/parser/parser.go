package parser

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`@[^@\s]+`)

// stepKeywords are recognised at the start of a step line. "But" and "*"
// are removed from Step.Text; the others are left for the step tokenizer.
var stepKeywords = []string{"Given", "When", "Then", "And", "But", "*"}

// Parse parses a .feature file and returns a Document AST and any parse errors.
func Parse(filename string, content []byte) (*Document, []ParseError) {
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	var errors []ParseError

	doc := &Document{}
	feature := &Feature{}
	doc.Feature = feature

	i := skipBlank(lines, 0)

	// Collect feature-level tags
	var featureTags []Tag
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if isTagLine(trimmed) {
			featureTags = append(featureTags, parseTags(trimmed, i+1)...)
			i = skipBlank(lines, i+1)
			continue
		}
		break
	}
	feature.Header.Tags = featureTags
	feature.Header.Name = filenameWithoutExt(filename)

	// Look for Feature: line
	if i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "Feature:") {
			feature.Header.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "Feature:"))
			feature.Header.Line = i + 1
			i++

			// Scan description lines until keyword or tag
			var descLines []string
			for i < len(lines) {
				trimmed := strings.TrimSpace(lines[i])
				if isKeyword(trimmed) || isTagLine(trimmed) {
					break
				}
				if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
					descLines = append(descLines, trimmed)
				}
				i++
			}
			feature.Header.Description = strings.Join(descLines, "\n")
		}
	}

	// Body loop
	var pendingTags []Tag
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])

		if isDocStringDelimiter(trimmed) {
			i = skipDocString(lines, i)
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}

		if isTagLine(trimmed) {
			pendingTags = append(pendingTags, parseTags(trimmed, i+1)...)
			i++
			continue
		}

		if strings.HasPrefix(trimmed, "Background:") {
			if len(pendingTags) > 0 {
				errors = append(errors, ParseError{Line: i + 1, Message: "Background cannot be tagged"})
				pendingTags = nil
			}
			if feature.Background != nil {
				errors = append(errors, ParseError{Line: i + 1, Message: "only one Background is allowed"})
			}
			bg := &Background{}
			bg.Steps, i = consumeSteps(lines, i+1)
			feature.Background = bg
			continue
		}

		if strings.HasPrefix(trimmed, "Scenario:") {
			sd := ScenarioDefinition{
				Tags:     pendingTags,
				Scenario: Scenario{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "Scenario:"))},
				Line:     i + 1,
			}
			pendingTags = nil
			sd.Scenario.Steps, i = consumeSteps(lines, i+1)
			feature.Scenarios = append(feature.Scenarios, sd)
			continue
		}

		// Unsupported keywords
		if msg, ok := unsupported(trimmed); ok {
			errors = append(errors, ParseError{Line: i + 1, Message: msg})
			pendingTags = nil
			_, i = consumeSteps(lines, i+1)
			continue
		}

		if strings.HasPrefix(trimmed, "Feature:") {
			errors = append(errors, ParseError{Line: i + 1, Message: "only one Feature is allowed per file"})
			i++
			continue
		}

		errors = append(errors, ParseError{Line: i + 1, Message: "step outside of a Scenario or Background"})
		i++
	}

	if len(pendingTags) > 0 {
		errors = append(errors, ParseError{Line: pendingTags[0].Line, Message: "tags are not followed by a Scenario"})
	}

	return doc, errors
}

func unsupported(trimmed string) (string, bool) {
	switch {
	case strings.HasPrefix(trimmed, "Scenario Outline:"):
		return "Scenario Outline is not supported", true
	case strings.HasPrefix(trimmed, "Rule:"):
		return "Rule is not supported", true
	case strings.HasPrefix(trimmed, "Examples:"):
		return "Examples is not supported", true
	}
	return "", false
}

func parseTags(line string, lineNo int) []Tag {
	if idx := strings.Index(line, " #"); idx >= 0 {
		line = line[:idx]
	}
	matches := tagPattern.FindAllString(line, -1)
	var tags []Tag
	for _, m := range matches {
		tags = append(tags, Tag{Name: m, Line: lineNo})
	}
	return tags
}

func isTagLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "@")
}

func isKeyword(trimmed string) bool {
	return strings.HasPrefix(trimmed, "Feature:") ||
		strings.HasPrefix(trimmed, "Background:") ||
		strings.HasPrefix(trimmed, "Scenario:") ||
		strings.HasPrefix(trimmed, "Scenario Outline:") ||
		strings.HasPrefix(trimmed, "Rule:") ||
		strings.HasPrefix(trimmed, "Examples:")
}

func isDocStringDelimiter(trimmed string) bool {
	return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "```")
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		break
	}
	return i
}

// skipDocString advances past a doc string block. i points at the opening delimiter.
// Returns the index of the line after the closing delimiter.
func skipDocString(lines []string, i int) int {
	opener := strings.TrimSpace(lines[i])
	delimiter := `"""`
	if strings.HasPrefix(opener, "```") {
		delimiter = "```"
	}
	i++ // move past opening delimiter
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == delimiter {
			return i + 1 // past the closing delimiter
		}
		i++
	}
	return i // EOF without closing delimiter
}

// consumeSteps collects step lines until the next keyword, tag line or EOF.
// Every other non-blank, non-comment line of the block is a step; doc
// strings and table rows are skipped.
func consumeSteps(lines []string, i int) ([]Step, int) {
	var steps []Step
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		if isDocStringDelimiter(t) {
			i = skipDocString(lines, i)
			continue
		}
		if isKeyword(t) || isTagLine(t) {
			break
		}
		if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "|") {
			i++
			continue
		}
		steps = append(steps, parseStep(t, i+1))
		i++
	}
	return steps, i
}

func parseStep(trimmed string, lineNo int) Step {
	s := Step{Text: trimmed, Line: lineNo}
	for _, kw := range stepKeywords {
		rest, ok := strings.CutPrefix(trimmed, kw)
		if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		s.Keyword = kw
		if kw == "But" || kw == "*" {
			s.Text = strings.TrimSpace(rest)
		}
		break
	}
	return s
}

func filenameWithoutExt(filename string) string {
	name := filename
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name
}
