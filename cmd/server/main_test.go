package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chemequip.yaml")
	content := "storage:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "data", "chemequip.db") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chemequip "+Version)
}

func TestCreateDemoUserCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCmd(t, "create-demo-user", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Created demo user 'demo'.\n", out)

	out, err = runCmd(t, "create-demo-user", "--config", cfg, "--password", "changed")
	require.NoError(t, err)
	assert.Equal(t, "Updated password for 'demo'.\n", out)

	out, err = runCmd(t, "create-demo-user", "--config", cfg, "--username", "alice", "--password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Created demo user 'alice'.\n", out)
}

func TestCreateDemoUserCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemequip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: oracle\n"), 0o644))

	_, err := runCmd(t, "create-demo-user", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
}
