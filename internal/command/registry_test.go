package command

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(NewVersionCommand("1.0.0"))

	cmd, err := r.Get("version")
	require.NoError(t, err)
	assert.Equal(t, "version", cmd.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryListIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(NewVersionCommand("1.0.0"))
	r.Register(NewHelpCommand(r))
	r.Register(NewInitCommand())

	assert.Equal(t, []string{"help", "init", "version"}, r.List())
}

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := NewVersionCommand("9.9.9")

	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "9.9.9")

	assert.Error(t, cmd.Execute([]string{"extra"}, &stdout, &stderr))
}

func TestHelpCommandListsCommands(t *testing.T) {
	r := NewRegistry()
	r.Register(NewVersionCommand("1.0.0"))
	help := NewHelpCommand(r)
	r.Register(help)

	var stdout, stderr bytes.Buffer
	require.NoError(t, help.Execute(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "version")
	assert.Contains(t, stdout.String(), "help")
}

func TestHelpCommandUnknown(t *testing.T) {
	r := NewRegistry()
	help := NewHelpCommand(r)

	var stdout, stderr bytes.Buffer
	assert.Error(t, help.Execute([]string{"nothing"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown command")
}
