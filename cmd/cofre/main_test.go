package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"jan.ofx", "feb.ofx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}

	files, err := expandFiles([]string{filepath.Join(dir, "*.ofx")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "jan.ofx"), filepath.Join(dir, "feb.ofx")}, files)

	files, err = expandFiles([]string{filepath.Join(dir, "notes.txt"), filepath.Join(dir, "missing-*.ofx")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, files)

	_, err = expandFiles([]string{filepath.Join(dir, "nothing-here.ofx")})
	assert.ErrorContains(t, err, "no files found")

	_, err = expandFiles([]string{"[invalid"})
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cofre.db")
	base := []string{"--db", dbPath, "--log-level", "error", "--user", "alice", "--family", "fam-1"}

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cofre dev")

	out, err = execute(t, append(base, "migrate")...)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version")

	out, err = execute(t, append(base, "migrate", "--status")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 5")

	out, err = execute(t, append(base, "feedback", "ZEQUINHA ARTESANATO", "--category", "compras")...)
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	out, err = execute(t, append(base, "recurring", "confirm", "lazer", "streaming", "--month", "2025-09", "--type", "ignored")...)
	require.NoError(t, err)
	assert.Contains(t, out, "marked ignored for 2025-09")

	out, err = execute(t, append(base, "backup", filepath.Join(t.TempDir(), "snap.db"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "learned_rules")
}
