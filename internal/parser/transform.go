package parser

// ParsedFile is the Layer 2 application model extracted from the AST.
type ParsedFile struct {
	Path      string
	Name      string
	Tags      []string
	TagsLine  int
	Scenarios []ParsedScenario
	Errors    []ParseError
}

// ParsedScenario is one scenario with the Background steps prepended.
type ParsedScenario struct {
	Name     string
	Tags     []string
	TagsLine int
	Steps    []string
	Line     int // 1-based line number of Scenario: line
}

// Transform converts a Layer 1 Document into a Layer 2 ParsedFile.
func Transform(doc *Document, filename string, errors []ParseError) *ParsedFile {
	pf := &ParsedFile{
		Path:   filename,
		Name:   filenameWithoutExt(filename),
		Errors: errors,
	}
	if doc == nil || doc.Feature == nil {
		return pf
	}

	f := doc.Feature
	pf.Name = f.Header.Name
	pf.Tags, pf.TagsLine = tagNames(f.Header.Tags)

	var background []string
	if f.Background != nil {
		background = stepTexts(f.Background.Steps)
	}

	for _, sd := range f.Scenarios {
		ps := ParsedScenario{
			Name: sd.Scenario.Name,
			Line: sd.Line,
		}
		ps.Tags, ps.TagsLine = tagNames(sd.Tags)
		ps.Steps = append(append([]string{}, background...), stepTexts(sd.Scenario.Steps)...)
		pf.Scenarios = append(pf.Scenarios, ps)
	}

	return pf
}

// ParseFile is Parse followed by Transform.
func ParseFile(filename string, content []byte) *ParsedFile {
	doc, errors := Parse(filename, content)
	return Transform(doc, filename, errors)
}

func tagNames(tags []Tag) ([]string, int) {
	if len(tags) == 0 {
		return nil, 0
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names, tags[0].Line
}

func stepTexts(steps []Step) []string {
	texts := make([]string, 0, len(steps))
	for _, s := range steps {
		texts = append(texts, s.Text)
	}
	return texts
}
