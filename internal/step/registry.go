package step

import (
	"fmt"

	"github.com/chriserin/b2b/internal/result"
)

// Candidate pairs a definition with the failure it reported for a sentence.
type Candidate struct {
	Definition *Definition
	Failure    ParseFailure
}

// NoMatch is returned when no registered definition accepts a sentence.
type NoMatch struct {
	Input    string
	Failures []Candidate
}

type FindOutcome = result.Result[Match, NoMatch]

// Registry holds definitions in registration order. The first definition
// that matches a sentence wins.
type Registry struct {
	defs []*Definition
	seen map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]bool)}
}

// Register appends definitions. Two definitions with the same description
// would be indistinguishable in diagnostics and are rejected.
func (r *Registry) Register(defs ...*Definition) error {
	for _, d := range defs {
		if r.seen[d.Description] {
			return fmt.Errorf("%w: duplicate step %q", ErrInvalidSchema, d.Description)
		}
		r.seen[d.Description] = true
		r.defs = append(r.defs, d)
	}
	return nil
}

func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *Registry) Find(sentence string) FindOutcome {
	tokens := Tokenize(sentence)
	failures := make([]Candidate, 0, len(r.defs))
	for _, d := range r.defs {
		outcome := d.match(tokens, sentence)
		if m, ok := outcome.Value(); ok {
			return result.Ok[Match, NoMatch](m)
		}
		f, _ := outcome.Failure()
		failures = append(failures, Candidate{Definition: d, Failure: f})
	}
	return result.Fail[Match](NoMatch{Input: sentence, Failures: failures})
}
