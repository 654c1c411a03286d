package step

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Slot validates and coerces the token captured at one schema position.
type Slot interface {
	// Expect describes what the slot accepts. It is reported as the expected
	// token when coercion fails.
	Expect() string
	Coerce(token string) (any, error)
}

type stringSlot struct{}

// String accepts any token.
func String() Slot { return stringSlot{} }

func (stringSlot) Expect() string { return "text" }

func (stringSlot) Coerce(token string) (any, error) { return token, nil }

type urlSlot struct{}

// URL accepts an absolute URL, a host[:port][/path] or a reference relative
// to the site such as "/login". Hosts without a scheme get "http://";
// relative references are kept as they are for the session to resolve.
func URL() Slot { return urlSlot{} }

func (urlSlot) Expect() string { return "a url" }

func (urlSlot) Coerce(token string) (any, error) {
	if IsRelativeURL(token) {
		return url.Parse(strings.TrimSpace(token))
	}
	u, err := url.Parse(NormalizeURL(token))
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", token)
	}
	return u, nil
}

// IsRelativeURL reports whether input is a path, query or fragment
// reference with no host.
func IsRelativeURL(input string) bool {
	input = strings.TrimSpace(input)
	for _, prefix := range []string{"/", "./", "../", "?", "#"} {
		if strings.HasPrefix(input, prefix) && !strings.HasPrefix(input, "//") {
			return true
		}
	}
	return false
}

// NormalizeURL prefixes inputs that carry no scheme with "http://".
func NormalizeURL(input string) string {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		return input
	}
	return "http://" + input
}

type numberSlot struct{}

// Number accepts a base-10 integer.
func Number() Slot { return numberSlot{} }

func (numberSlot) Expect() string { return "a number" }

func (numberSlot) Coerce(token string) (any, error) {
	return strconv.Atoi(token)
}

type transformSlot struct {
	expect string
	fn     func(string) (any, error)
}

// Transform builds a slot from a conversion function. expect is reported when
// fn returns an error.
func Transform(expect string, fn func(string) (any, error)) Slot {
	return transformSlot{expect: expect, fn: fn}
}

func (s transformSlot) Expect() string { return s.expect }

func (s transformSlot) Coerce(token string) (any, error) { return s.fn(token) }
