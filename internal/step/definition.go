package step

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chriserin/b2b/internal/result"
)

var ErrInvalidSchema = errors.New("invalid step schema")

// Token is one schema position: either a literal keyword or a capture slot.
type Token struct {
	Literal string
	Name    string
	Slot    Slot
}

func Literal(text string) Token {
	return Token{Literal: text}
}

func Capture(name string, slot Slot) Token {
	return Token{Name: name, Slot: slot}
}

func (t Token) IsCapture() bool {
	return t.Slot != nil
}

// Placeholder is how a capture is rendered in a description.
func (t Token) Placeholder() string {
	return "{" + t.Name + "}"
}

// Context is passed through to executors untouched. Session is owned by the
// automation layer.
type Context struct {
	FeatureFilePath string
	ScenarioTitle   string
	Session         any
}

// Failure is a step that ran and did not succeed.
type Failure struct {
	Message  string
	Evidence string
}

type Outcome = result.Result[struct{}, Failure]

func Pass() Outcome {
	return result.Ok[struct{}, Failure](struct{}{})
}

func Fail(message string) Outcome {
	return result.Fail[struct{}](Failure{Message: message})
}

func Failf(format string, args ...any) Outcome {
	return Fail(fmt.Sprintf(format, args...))
}

// FailWithEvidence attaches an artifact path, e.g. a page snapshot.
func FailWithEvidence(message, evidence string) Outcome {
	return result.Fail[struct{}](Failure{Message: message, Evidence: evidence})
}

type Executor func(ctx context.Context, args Args, sc Context) Outcome

// Definition is a registered step: an ordered schema and the executor bound
// to it on a successful match.
type Definition struct {
	Description string
	Schema      []Token
	Exec        Executor
}

// New validates the schema and renders its description. The description has
// to tokenize back onto the schema position by position.
func New(exec Executor, schema ...Token) (*Definition, error) {
	if exec == nil {
		return nil, fmt.Errorf("%w: nil executor", ErrInvalidSchema)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: empty schema", ErrInvalidSchema)
	}

	names := make(map[string]bool)
	for i, tok := range schema {
		if tok.IsCapture() {
			if tok.Name == "" || strings.ContainsAny(tok.Name, " \t'\"") {
				return nil, fmt.Errorf("%w: bad capture name %q at position %d", ErrInvalidSchema, tok.Name, i)
			}
			if names[tok.Name] {
				return nil, fmt.Errorf("%w: duplicate capture %q", ErrInvalidSchema, tok.Name)
			}
			names[tok.Name] = true
			continue
		}
		if tok.Literal == "" || strings.ContainsAny(tok.Literal, " \t'\"") {
			return nil, fmt.Errorf("%w: bad literal %q at position %d", ErrInvalidSchema, tok.Literal, i)
		}
	}

	def := &Definition{
		Description: describe(schema),
		Schema:      schema,
		Exec:        exec,
	}
	if err := def.checkDescription(); err != nil {
		return nil, err
	}
	return def, nil
}

func MustNew(exec Executor, schema ...Token) *Definition {
	def, err := New(exec, schema...)
	if err != nil {
		panic(err)
	}
	return def
}

func describe(schema []Token) string {
	parts := make([]string, len(schema))
	for i, tok := range schema {
		if tok.IsCapture() {
			parts[i] = tok.Placeholder()
		} else {
			parts[i] = tok.Literal
		}
	}
	return capitalize(strings.Join(parts, " "))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// checkDescription guards against the description drifting from the schema,
// which would also break suggestion ranking.
func (d *Definition) checkDescription() error {
	tokens := Tokenize(d.Description)
	if len(tokens) != len(d.Schema) {
		return fmt.Errorf("%w: description %q renders %d tokens for %d schema entries",
			ErrInvalidSchema, d.Description, len(tokens), len(d.Schema))
	}
	for i, tok := range d.Schema {
		want := tok.Literal
		if tok.IsCapture() {
			want = tok.Placeholder()
		}
		if !strings.EqualFold(tokens[i], want) {
			return fmt.Errorf("%w: description %q position %d is %q, want %q",
				ErrInvalidSchema, d.Description, i, tokens[i], want)
		}
	}
	return nil
}
