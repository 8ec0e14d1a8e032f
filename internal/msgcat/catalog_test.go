package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	assert.Equal(t, "account created", c.Text("auth.create_ok"))
	assert.Equal(t, "illegal move", c.Text("room.illegal_move"))
}

func TestUnknownKeyReturnsKey(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "no.such.key", c.Text("no.such.key"))
}

func TestOverrideDirWins(t *testing.T) {
	dir := t.TempDir()
	first := "room:\n  illegal_move: \"that square is taken\"\n"
	second := "auth:\n  create_ok: \"welcome aboard\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-room.yaml"), []byte(first), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-auth.yml"), []byte(second), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not yaml"), 0o644))

	c, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, "that square is taken", c.Text("room.illegal_move"))
	assert.Equal(t, "welcome aboard", c.Text("auth.create_ok"))
	// untouched defaults survive an override
	assert.Equal(t, "wrong password", c.Text("auth.wrong_password"))
}

func TestLaterOverrideFileWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("server:\n  storage_error: \"first\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("server:\n  storage_error: \"second\"\n"), 0o644))

	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "second", c.Text("server.storage_error"))
}

func TestMissingOverrideDirFails(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestBadYAMLRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":\n :::"), 0o644))
	_, err := New(dir)
	assert.Error(t, err)
}
