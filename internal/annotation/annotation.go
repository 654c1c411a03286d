package annotation

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownAnnotation = errors.New("unknown annotation")

type Annotation uint8

const (
	Focus Annotation = 1 << iota
	Skip
	ShouldFail
)

var names = map[Annotation]string{
	Focus:      "focus",
	Skip:       "skip",
	ShouldFail: "shouldfail",
}

func (a Annotation) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("annotation(%d)", uint8(a))
}

// Set is a set of annotations.
type Set uint8

func NewSet(as ...Annotation) Set {
	var s Set
	for _, a := range as {
		s |= Set(a)
	}
	return s
}

func (s Set) Has(a Annotation) bool {
	return s&Set(a) != 0
}

func (s Set) With(a Annotation) Set {
	return s | Set(a)
}

func (s Set) String() string {
	var parts []string
	for _, a := range []Annotation{Focus, Skip, ShouldFail} {
		if s.Has(a) {
			parts = append(parts, a.String())
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Parse converts raw tags such as "@focus" into a Set. The leading "@" is
// optional and matching is case-insensitive. Any tag outside the known set
// is an error: silently dropping it could change which scenarios run.
func Parse(tags []string) (Set, error) {
	var s Set
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "@"))
		a, ok := lookup(name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownAnnotation, tag)
		}
		s = s.With(a)
	}
	return s, nil
}

func lookup(name string) (Annotation, bool) {
	for a, n := range names {
		if n == name {
			return a, true
		}
	}
	return 0, false
}
