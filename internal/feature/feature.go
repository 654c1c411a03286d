package feature

import "github.com/chriserin/b2b/internal/annotation"

// Feature is one parsed feature file with resolved skip reasons. It is not
// modified after Load returns.
type Feature struct {
	Title       string
	FilePath    string
	Annotations annotation.Set
	SkipReason  annotation.SkipReason
	Scenarios   []Scenario
}

type Scenario struct {
	Title       string
	Line        int
	Annotations annotation.Set
	SkipReason  annotation.SkipReason
	Steps       []string
}

func (f Feature) Focused() bool {
	return f.Annotations.Has(annotation.Focus)
}

// Active returns the scenarios that run. It is empty for a skipped feature.
func (f Feature) Active() []Scenario {
	var out []Scenario
	for _, s := range f.Scenarios {
		if annotation.Runnable(f.SkipReason, s.SkipReason) {
			out = append(out, s)
		}
	}
	return out
}

// Runnable reports whether any scenario of the feature executes.
func (f Feature) Runnable() bool {
	return len(f.Active()) > 0
}

func (s Scenario) Focused() bool {
	return s.Annotations.Has(annotation.Focus)
}

// ExpectFailure is true for scenarios tagged @shouldfail.
func (s Scenario) ExpectFailure() bool {
	return s.Annotations.Has(annotation.ShouldFail)
}
