package step

import "strings"

// connectives are dropped from the first two token positions only.
var connectives = map[string]bool{
	"given": true,
	"when":  true,
	"then":  true,
	"and":   true,
}

type rawToken struct {
	text   string
	quoted bool
}

// Tokenize splits a step sentence on unquoted whitespace. A span enclosed in
// matching single or double quotes becomes one token with the quotes
// stripped. Leading Gherkin connectives are removed from positions 0 and 1;
// a connective further right, or one written in quotes, is kept.
func Tokenize(sentence string) []string {
	raw := split(sentence)

	tokens := make([]string, 0, len(raw))
	for i, tok := range raw {
		if i < 2 && !tok.quoted && connectives[strings.ToLower(tok.text)] {
			continue
		}
		tokens = append(tokens, tok.text)
	}
	return tokens
}

func split(sentence string) []rawToken {
	var (
		tokens    []rawToken
		current   strings.Builder
		inQuotes  bool
		quoteChar rune
		quoted    bool
	)

	flush := func() {
		text := current.String()
		if quoted || strings.TrimSpace(text) != "" {
			if !quoted {
				text = strings.TrimSpace(text)
			}
			tokens = append(tokens, rawToken{text: text, quoted: quoted})
		}
		current.Reset()
		quoted = false
	}

	for _, r := range sentence {
		switch {
		case !inQuotes && (r == '\'' || r == '"'):
			inQuotes = true
			quoteChar = r
			quoted = true
		case inQuotes && r == quoteChar:
			inQuotes = false
		case !inQuotes && (r == ' ' || r == '\t'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}
