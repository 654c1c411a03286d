package step

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/chriserin/b2b/internal/result"
)

// Arg is one matched schema position.
type Arg struct {
	Key   string
	Value any
}

// Args are the captured values of a successful match, keyed by capture name.
type Args struct {
	values map[string]any
}

func (a Args) Value(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

func (a Args) Int(name string) int {
	n, _ := a.values[name].(int)
	return n
}

func (a Args) URL(name string) *url.URL {
	u, _ := a.values[name].(*url.URL)
	return u
}

func (a Args) Len() int {
	return len(a.values)
}

// Match is a successful parse. Nothing has run yet; Execute invokes the
// definition's executor with the captured arguments.
type Match struct {
	Definition *Definition
	Args       Args
}

func (m Match) Execute(ctx context.Context, sc Context) Outcome {
	return m.Definition.Exec(ctx, m.Args, sc)
}

// ParseFailure reports the first position at which a definition rejected a
// sentence.
type ParseFailure struct {
	Expected     string
	Actual       string
	MatchedSoFar []Arg
	Input        string
}

type ParseOutcome = result.Result[Match, ParseFailure]

// MatchSentence tokenizes sentence and matches it against the definition.
func (d *Definition) MatchSentence(sentence string) ParseOutcome {
	return d.match(Tokenize(sentence), sentence)
}

// Match walks the schema and the tokens in lockstep. Literals compare
// case-sensitively; captures go through their slot.
func (d *Definition) Match(tokens []string) ParseOutcome {
	return d.match(tokens, strings.Join(tokens, " "))
}

func (d *Definition) match(tokens []string, input string) ParseOutcome {
	matched := make([]Arg, 0, len(d.Schema))
	values := make(map[string]any)

	lengthFailure := func() ParseOutcome {
		return result.Fail[Match](ParseFailure{
			Expected:     fmt.Sprintf("%d tokens", len(d.Schema)),
			Actual:       fmt.Sprintf("%d tokens", len(tokens)),
			MatchedSoFar: matched,
			Input:        input,
		})
	}

	n := max(len(tokens), len(d.Schema))
	for i := 0; i < n; i++ {
		if i >= len(tokens) || i >= len(d.Schema) {
			return lengthFailure()
		}
		token, entry := tokens[i], d.Schema[i]

		if !entry.IsCapture() {
			if token != entry.Literal {
				return result.Fail[Match](ParseFailure{
					Expected:     entry.Literal,
					Actual:       token,
					MatchedSoFar: matched,
					Input:        input,
				})
			}
			matched = append(matched, Arg{Key: entry.Literal, Value: token})
			continue
		}

		v, err := entry.Slot.Coerce(token)
		if err != nil {
			return result.Fail[Match](ParseFailure{
				Expected:     entry.Slot.Expect(),
				Actual:       token,
				MatchedSoFar: matched,
				Input:        input,
			})
		}
		values[entry.Name] = v
		matched = append(matched, Arg{Key: entry.Name, Value: v})
	}

	return result.Ok[Match, ParseFailure](Match{Definition: d, Args: Args{values: values}})
}

