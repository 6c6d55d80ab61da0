// Package names expands user-supplied names into the variation set the
// matcher consumes: honorific combinations, initials forms, and
// last-name-only forms.
package names

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultHonorifics is the honorific token list used when none is
// configured.
var DefaultHonorifics = []string{
	"Mr.", "Mrs.", "Ms.", "Miss", "Dr.", "Prof.", "Professor",
	"Sir", "Dame", "Rev.", "Hon.",
}

var partSplitter = regexp.MustCompile(`[\s.\-]+`)

// ParseNames splits a comma-separated user input into trimmed,
// non-empty raw names.
func ParseNames(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(input, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Generate expands rawNames into the full variation set: each name
// verbatim, its honorific-stripped bare form, initials and
// last-name-only forms derived from the bare parts, and every
// honorific recombined with the bare name. Terms of length <= 1 are
// discarded; the result is deduplicated and ordered longest-first.
func Generate(rawNames []string, honorifics []string) []string {
	if len(honorifics) == 0 {
		honorifics = DefaultHonorifics
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		if len([]rune(term)) <= 1 {
			return
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}

	for _, raw := range rawNames {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		add(raw)

		bare := stripHonorific(raw, honorifics)
		add(bare)

		parts := splitParts(bare)
		addPartForms(add, parts)

		for _, h := range honorifics {
			add(h + " " + bare)
			if len(parts) >= 2 {
				add(h + " " + parts[len(parts)-1])
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// addPartForms adds the initials and dropped-middle variants for the
// ordered parts of a bare name.
func addPartForms(add func(string), parts []string) {
	switch len(parts) {
	case 0, 1:
		return
	default:
		first := parts[0]
		last := parts[len(parts)-1]
		add(last)
		add(initial(first) + ". " + last)
		add(first + " " + initial(last) + ".")
		add(initial(first) + "." + initial(last) + ".")
		if len(parts) == 3 {
			middle := parts[1]
			add(first + " " + last)
			add(initial(first) + ". " + initial(middle) + ". " + last)
			add(first + " " + initial(middle) + ". " + last)
		}
	}
}

// stripHonorific removes a leading honorific token (case-insensitive,
// with or without trailing period). A name that consists only of an
// honorific is returned unchanged.
func stripHonorific(name string, honorifics []string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return name
	}
	head := strings.ToLower(strings.TrimSuffix(fields[0], "."))
	for _, h := range honorifics {
		if head == strings.ToLower(strings.TrimSuffix(h, ".")) {
			return strings.Join(fields[1:], " ")
		}
	}
	return name
}

// splitParts splits a bare name on whitespace, hyphens, and periods.
func splitParts(bare string) []string {
	var parts []string
	for _, p := range partSplitter.Split(bare, -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func initial(part string) string {
	runes := []rune(part)
	if len(runes) == 0 {
		return ""
	}
	return strings.ToUpper(string(runes[0]))
}
