package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHonorificExpansion(t *testing.T) {
	got := Generate([]string{"Prof. John K. Doe"}, nil)

	set := make(map[string]struct{}, len(got))
	for _, term := range got {
		set[strings.ToLower(term)] = struct{}{}
	}
	contains := func(term string) bool {
		_, ok := set[strings.ToLower(term)]
		return ok
	}

	for _, want := range []string{
		"Prof. John K. Doe",
		"John K. Doe",
		"Doe",
		"John Doe",
		"J. Doe",
		"John D.",
		"J.D.",
		"J. K. Doe",
		"John K. Doe",
		"Dr. John K. Doe",
		"Dr. Doe",
		"Mr. Doe",
	} {
		assert.True(t, contains(want), "expected %q in %v", want, got)
	}
}

func TestGenerateTwoPartName(t *testing.T) {
	got := Generate([]string{"Jane Smith"}, []string{"Dr."})

	assert.Contains(t, got, "Jane Smith")
	assert.Contains(t, got, "Smith")
	assert.Contains(t, got, "J. Smith")
	assert.Contains(t, got, "Jane S.")
	assert.Contains(t, got, "J.S.")
	assert.Contains(t, got, "Dr. Jane Smith")
	assert.Contains(t, got, "Dr. Smith")
}

func TestGenerateSinglePartName(t *testing.T) {
	got := Generate([]string{"Contoso"}, []string{"Dr."})

	assert.Contains(t, got, "Contoso")
	assert.Contains(t, got, "Dr. Contoso")
	// No last-name-only or initials forms exist for a single part.
	assert.NotContains(t, got, "C.")
}

func TestGenerateLongestFirstOrder(t *testing.T) {
	got := Generate([]string{"Jane Smith"}, []string{"Dr."})
	require.NotEmpty(t, got)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, len(got[i-1]), len(got[i]),
			"terms must be ordered longest-first: %v", got)
	}
}

func TestGenerateFiltersShortTerms(t *testing.T) {
	for _, term := range Generate([]string{"Jane Smith", "X"}, nil) {
		assert.Greater(t, len([]rune(strings.TrimSpace(term))), 1, "term %q too short", term)
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	assert.Empty(t, Generate(nil, nil))
	assert.Empty(t, Generate([]string{"", "  "}, nil))
}

func TestGenerateHonorificOnlyName(t *testing.T) {
	// A lone honorific is treated as a single-part bare name.
	got := Generate([]string{"Professor"}, []string{"Dr.", "Professor"})

	assert.Contains(t, got, "Professor")
	assert.Contains(t, got, "Dr. Professor")
}

func TestStripHonorific(t *testing.T) {
	honorifics := []string{"Dr.", "Professor"}

	assert.Equal(t, "John Doe", stripHonorific("Dr. John Doe", honorifics))
	assert.Equal(t, "John Doe", stripHonorific("dr John Doe", honorifics))
	assert.Equal(t, "John Doe", stripHonorific("PROFESSOR John Doe", honorifics))
	assert.Equal(t, "John Doe", stripHonorific("John Doe", honorifics))
	assert.Equal(t, "Dr.", stripHonorific("Dr.", honorifics))
}

func TestParseNames(t *testing.T) {
	assert.Equal(t, []string{"John Doe", "Jane Smith"}, ParseNames(" John Doe , Jane Smith ,, "))
	assert.Nil(t, ParseNames("   "))
	assert.Nil(t, ParseNames(""))
}

func TestParseCandidateLines(t *testing.T) {
	got := parseCandidateLines("- John Doe\n2. Jane Smith\n\n* Albus Dumbledore\nX")

	assert.Equal(t, []string{"John Doe", "Jane Smith", "Albus Dumbledore"}, got)
}
