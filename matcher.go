package cashbook

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchKind is the way a TextMatcher compares text.
type MatchKind int

const (
	Contains MatchKind = iota
	Equals
	Regexp
)

func (k MatchKind) String() string {
	switch k {
	case Contains:
		return "contains"
	case Equals:
		return "equals"
	case Regexp:
		return "regexp"
	default:
		return "unknown"
	}
}

// ParseMatchKind parses the name of a match kind.
func ParseMatchKind(s string) (MatchKind, error) {
	for k := Contains; k <= Regexp; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return Contains, invalidf("unknown match kind %q", s)
}

// TextMatcher is a predicate on a text attribute.
//
// A nil *TextMatcher matches everything; a configured one never matches an
// empty text.
type TextMatcher struct {
	kind               MatchKind
	pattern            string
	caseSensitive      bool
	diacriticSensitive bool

	folded string         // pattern, folded as the subjects are
	re     *regexp.Regexp // for Regexp
}

// NewTextMatcher returns a matcher. With a Regexp kind, pattern is a Go
// regular expression.
func NewTextMatcher(kind MatchKind, pattern string, caseSensitive, diacriticSensitive bool) (*TextMatcher, error) {
	m := &TextMatcher{
		kind:               kind,
		pattern:            pattern,
		caseSensitive:      caseSensitive,
		diacriticSensitive: diacriticSensitive,
	}
	switch kind {
	case Contains, Equals:
		m.folded = m.fold(pattern)
	case Regexp:
		expr := m.fold(pattern)
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, ErrInvalidArgument)
		}
		m.re = re
	default:
		return nil, invalidf("unknown match kind %d", kind)
	}
	return m, nil
}

// MustTextMatcher is like NewTextMatcher but panics on error.
func MustTextMatcher(kind MatchKind, pattern string, caseSensitive, diacriticSensitive bool) *TextMatcher {
	m, err := NewTextMatcher(kind, pattern, caseSensitive, diacriticSensitive)
	if err != nil {
		panic(err.Error())
	}
	return m
}

func (m *TextMatcher) Kind() MatchKind            { return m.kind }
func (m *TextMatcher) Pattern() string            { return m.pattern }
func (m *TextMatcher) IsCaseSensitive() bool      { return m.caseSensitive }
func (m *TextMatcher) IsDiacriticSensitive() bool { return m.diacriticSensitive }

// Equal reports whether both matchers select the same texts. Two nil matchers
// are equal.
func (m *TextMatcher) Equal(o *TextMatcher) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.kind == o.kind && m.pattern == o.pattern &&
		m.caseSensitive == o.caseSensitive && m.diacriticSensitive == o.diacriticSensitive
}

// Matches reports whether text is selected.
func (m *TextMatcher) Matches(text string) bool {
	if m == nil {
		return true
	}
	if text == "" {
		return false
	}
	s := m.fold(text)
	switch m.kind {
	case Equals:
		return s == m.folded
	case Regexp:
		return m.re.MatchString(s)
	default:
		return strings.Contains(s, m.folded)
	}
}

func (m *TextMatcher) String() string {
	if m == nil {
		return "*"
	}
	return fmt.Sprintf("%s %q", m.kind, m.pattern)
}

// fold normalizes text according to the sensitivity flags. Regexp patterns
// are left to the (?i) flag for case.
func (m *TextMatcher) fold(s string) string {
	if !m.diacriticSensitive {
		s = stripDiacritics(s)
	}
	if !m.caseSensitive && m.kind != Regexp {
		s = cases.Fold().String(s)
	}
	return s
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
