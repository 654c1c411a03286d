package step

import (
	"slices"
	"strings"
)

const DefaultSuggestions = 3

// connectiveWeight applies to filler words; every other shared token weighs
// defaultWeight.
const (
	connectiveWeight = 1
	defaultWeight    = 2
)

var connectiveTokens = map[string]bool{
	"i":    true,
	"the":  true,
	"a":    true,
	"an":   true,
	"in":   true,
	"into": true,
	"to":   true,
	"of":   true,
	"on":   true,
}

type Suggestion struct {
	Definition *Definition
	Score      int
}

// Suggest ranks the definitions that failed to match input by weighted token
// overlap with their descriptions. Ties keep registration order.
func Suggest(input string, failures []Candidate, limit int) []Suggestion {
	inputTokens := tokenSet(input)

	scored := make([]Suggestion, 0, len(failures))
	for _, c := range failures {
		score := 0
		for tok := range tokenSet(c.Definition.Description) {
			if inputTokens[tok] {
				score += weight(tok)
			}
		}
		scored = append(scored, Suggestion{Definition: c.Definition, Score: score})
	}

	slices.SortStableFunc(scored, func(a, b Suggestion) int {
		return b.Score - a.Score
	})
	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(s) {
		set[strings.ToLower(tok)] = true
	}
	return set
}

func weight(tok string) int {
	if connectiveTokens[tok] {
		return connectiveWeight
	}
	return defaultWeight
}
