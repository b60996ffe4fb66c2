package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanCommandRemovesScratchDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scratch := filepath.Join(dir, "orchestra-scratch")
	require.NoError(t, os.MkdirAll(filepath.Join(scratch, "leftover"), 0o755))

	root := newRootCmd(&AppContext{})
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"clean", "--scratch-dir", scratch})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "removed")

	_, err := os.Stat(scratch)
	require.True(t, os.IsNotExist(err))
}

func TestRunCommandCleanAliasRemovesScratchDirWithoutPlanning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scratch := filepath.Join(dir, "orchestra-scratch")
	require.NoError(t, os.MkdirAll(filepath.Join(scratch, "leftover"), 0o755))

	root := newRootCmd(&AppContext{})
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"run", "--clean", "--dir", scratch})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "removed")

	_, err := os.Stat(scratch)
	require.True(t, os.IsNotExist(err))
}

func TestCleanCommandSucceedsWhenScratchDirAbsent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scratch := filepath.Join(dir, "never-created")

	root := newRootCmd(&AppContext{})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"clean", "--scratch-dir", scratch})

	require.NoError(t, root.Execute())
}
