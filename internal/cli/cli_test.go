package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCommand("test", "none", "unknown")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "redactor removes personal names")
	assert.Contains(t, out, "--names")
	assert.Contains(t, out, "--placeholder")
	assert.Contains(t, out, "--preserve-case")
	assert.Contains(t, out, "--first-page")
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCommand("1.2.3", "abc", "today")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestRootCommandRequiresFileArgument(t *testing.T) {
	cmd := NewRootCommand("test", "none", "unknown")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--names", "John Smith"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 file")
}
