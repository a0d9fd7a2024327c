package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extraterm/extman/internal/config"
	"github.com/extraterm/extman/internal/storage"
)

// writeTestExtension writes a minimal extension directory under root.
func writeTestExtension(t *testing.T, root, name, manifestJSON string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifestJSON), 0o644))
}

func setupTestEnv(t *testing.T) (*config.Config, string, string) {
	t.Helper()

	stateDir := t.TempDir()
	storage.SetTestPaths(stateDir)
	t.Cleanup(storage.ResetPaths)

	extRoot := t.TempDir()
	writeTestExtension(t, extRoot, "spellcheck", `{
		"name": "spellcheck",
		"version": "1.2.0",
		"description": "Spell checking",
		"contributes": {"commands": [
			{"command": "check", "title": "Check Spelling"}
		]}
	}`)

	cfg := config.NewConfig()
	cfg.SetGlobalOption("extension-path", extRoot)
	configPath := filepath.Join(t.TempDir(), "config")

	return cfg, configPath, extRoot
}

func TestListCommand(t *testing.T) {
	cfg, _, _ := setupTestEnv(t)

	var stdout, stderr bytes.Buffer
	cmd := NewListCommand(cfg)
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "spellcheck")
	assert.Contains(t, out, "1.2.0")
	assert.Contains(t, out, "true")
}

func TestListCommandNoExtensions(t *testing.T) {
	cfg := config.NewConfig()

	var stdout, stderr bytes.Buffer
	cmd := NewListCommand(cfg)
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "No extensions found")
}

func TestEnableDisableCommands(t *testing.T) {
	cfg, configPath, _ := setupTestEnv(t)

	var stdout, stderr bytes.Buffer
	disable := NewDisableCommand(cfg, configPath)
	require.NoError(t, disable.Execute([]string{"spellcheck"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Disabled")

	reloaded, err := config.LoadFromPath(configPath)
	require.NoError(t, err)
	enabled, ok := reloaded.ActiveExtensions["spellcheck"]
	require.True(t, ok)
	assert.False(t, enabled)

	stdout.Reset()
	enable := NewEnableCommand(cfg, configPath)
	require.NoError(t, enable.Execute([]string{"spellcheck"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Enabled")

	reloaded, err = config.LoadFromPath(configPath)
	require.NoError(t, err)
	assert.True(t, reloaded.ActiveExtensions["spellcheck"])
}

func TestEnableUnknownExtensionFails(t *testing.T) {
	cfg, configPath, _ := setupTestEnv(t)

	var stdout, stderr bytes.Buffer
	enable := NewEnableCommand(cfg, configPath)
	err := enable.Execute([]string{"nope"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown extension")
}

func TestCommandsCommandQueriesContributions(t *testing.T) {
	cfg, configPath, _ := setupTestEnv(t)

	var stdout, stderr bytes.Buffer
	cmd := NewCommandsCommand(cfg, configPath)
	cmd.palette = true
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "spellcheck:check")
	assert.Contains(t, out, "Check Spelling")
}

func TestExecCommandUnknownCommandFails(t *testing.T) {
	cfg, configPath, _ := setupTestEnv(t)

	var stdout, stderr bytes.Buffer
	cmd := NewExecCommand(cfg, configPath)
	err := cmd.Execute([]string{"spellcheck:missing"}, &stdout, &stderr)
	assert.Error(t, err)
}
