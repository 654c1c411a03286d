package feature

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/chriserin/b2b/internal/annotation"
	"github.com/chriserin/b2b/internal/parser"
)

const Ext = ".feature"

var ErrNoFeatures = errors.New("no feature files found")

// Source is the raw content of one feature file.
type Source struct {
	Path    string
	Content []byte
}

// SourceError locates a load failure in a feature file.
type SourceError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Discover lists the feature files below dir, sorted by path.
func Discover(dir string) ([]Source, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("feature directory %s: %w", dir, err)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == Ext {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(paths)

	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, Source{Path: path, Content: content})
	}
	return sources, nil
}

// Load parses every source and resolves skip reasons across the whole
// suite. Any syntax error or unknown annotation fails the load; the errors
// of all files are joined.
func Load(sources []Source) ([]Feature, error) {
	var (
		errs     []error
		features []Feature
	)

	for _, src := range sources {
		pf := parser.ParseFile(src.Path, src.Content)
		for _, pe := range pf.Errors {
			errs = append(errs, &SourceError{Path: src.Path, Line: pe.Line, Message: pe.Message})
		}

		f, ferrs := fromParsed(pf)
		if len(ferrs) > 0 {
			errs = append(errs, ferrs...)
			continue
		}
		features = append(features, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	resolve(features)
	return features, nil
}

// LoadDir discovers and loads the feature files below dir.
func LoadDir(dir string) ([]Feature, error) {
	sources, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFeatures, dir)
	}
	return Load(sources)
}

func fromParsed(pf *parser.ParsedFile) (Feature, []error) {
	var errs []error

	f := Feature{Title: pf.Name, FilePath: pf.Path}
	set, err := annotation.Parse(pf.Tags)
	if err != nil {
		errs = append(errs, &SourceError{Path: pf.Path, Line: pf.TagsLine, Message: err.Error(), Err: err})
	}
	f.Annotations = set

	for _, ps := range pf.Scenarios {
		set, err := annotation.Parse(ps.Tags)
		if err != nil {
			errs = append(errs, &SourceError{Path: pf.Path, Line: ps.TagsLine, Message: err.Error(), Err: err})
			continue
		}
		f.Scenarios = append(f.Scenarios, Scenario{
			Title:       ps.Name,
			Line:        ps.Line,
			Annotations: set,
			Steps:       ps.Steps,
		})
	}
	return f, errs
}

func resolve(features []Feature) {
	inputs := make([]annotation.Input, len(features))
	for i, f := range features {
		in := annotation.Input{Feature: f.Annotations}
		for _, s := range f.Scenarios {
			in.Scenarios = append(in.Scenarios, s.Annotations)
		}
		inputs[i] = in
	}

	for i, res := range annotation.Resolve(inputs) {
		features[i].SkipReason = res.Feature
		for j := range features[i].Scenarios {
			features[i].Scenarios[j].SkipReason = res.Scenarios[j]
		}
	}
}
