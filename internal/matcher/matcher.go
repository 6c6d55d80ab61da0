// Package matcher implements the term matching and replacement engine.
// Matching is case-insensitive, whole-word, and longest-term-first so
// that "John Smith" is consumed before "Smith" can shadow it.
package matcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
)

// Matcher replaces a fixed set of terms with a placeholder.
// A Matcher is immutable after construction and safe to reuse across
// documents within a single invocation.
type Matcher struct {
	terms        []string
	placeholder  string
	preserveCase bool
	patterns     map[string]*regexp2.Regexp
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPreserveCase enables case adaptation of the placeholder.
func WithPreserveCase(on bool) Option {
	return func(m *Matcher) { m.preserveCase = on }
}

// New builds a Matcher from the given terms. Terms are deduplicated
// case-insensitively, terms of length <= 1 are discarded, and the rest
// are ordered longest-first.
func New(terms []string, placeholder string, opts ...Option) *Matcher {
	m := &Matcher{
		placeholder: placeholder,
		patterns:    make(map[string]*regexp2.Regexp),
	}
	for _, opt := range opts {
		opt(m)
	}

	seen := make(map[string]struct{})
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if len([]rune(t)) <= 1 {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		m.terms = append(m.terms, t)
	}

	// Longest first; alphabetical among equals for determinism.
	sort.SliceStable(m.terms, func(i, j int) bool {
		if len(m.terms[i]) != len(m.terms[j]) {
			return len(m.terms[i]) > len(m.terms[j])
		}
		return m.terms[i] < m.terms[j]
	})

	for _, t := range m.terms {
		m.pattern(t)
	}
	return m
}

// Terms returns the effective term list, longest first.
func (m *Matcher) Terms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// Placeholder returns the configured replacement text.
func (m *Matcher) Placeholder() string {
	return m.placeholder
}

// Replace substitutes every whole-word occurrence of every term in text
// with the placeholder and returns the new text plus the number of
// substitutions. Zero matches returns the input unchanged and count 0.
func (m *Matcher) Replace(text string) (string, int) {
	if text == "" || len(m.terms) == 0 {
		return text, 0
	}

	total := 0
	working := text
	for _, term := range m.terms {
		re := m.pattern(term)
		replaced, err := re.ReplaceFunc(working, func(match regexp2.Match) string {
			total++
			if m.preserveCase {
				return AdaptCase(match.String(), m.placeholder)
			}
			return m.placeholder
		}, -1, -1)
		if err != nil {
			// regexp2 only errors on timeout settings we do not use.
			continue
		}
		working = replaced
	}

	if total == 0 {
		return text, 0
	}
	return working, total
}

// pattern compiles (and caches) the whole-word pattern for a term.
//
// Stdlib \b cannot express the boundary rule for terms that end in a
// non-word character: in `J\.D\.\b` the trailing \b demands a word
// character after the final period, so "J.D." at the end of a sentence
// never matches. Lookarounds state the actual rule from both sides:
// the character adjacent to the match must not be a letter or digit.
func (m *Matcher) pattern(term string) *regexp2.Regexp {
	if re, ok := m.patterns[term]; ok {
		return re
	}
	expr := `(?<![\p{L}\p{N}])` + regexp.QuoteMeta(term) + `(?![\p{L}\p{N}])`
	re := regexp2.MustCompile(expr, regexp2.IgnoreCase)
	m.patterns[term] = re
	return re
}
