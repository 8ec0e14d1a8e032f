package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5491", cfg.ListenAddr)
	assert.Equal(t, "utf8", cfg.FrameEncoding)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, filepath.Join("data", "accounts.txt"), cfg.AccountsFile)
}

func TestFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridmatch.yaml")
	raw := "listen_addr: \":7000\"\nframe_encoding: utf16le\ndata_dir: /var/lib/gridmatch\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	t.Setenv("GRIDMATCH_CONFIG", path)
	t.Setenv("LISTEN_ADDR", ":7001") // env wins over the file
	t.Setenv("IDLE_TIMEOUT_SEC", "90")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.ListenAddr)
	assert.Equal(t, "utf16le", cfg.FrameEncoding)
	assert.Equal(t, "/var/lib/gridmatch", cfg.DataDir)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, filepath.Join("/var/lib/gridmatch", "accounts.txt"), cfg.AccountsFile)
}

func TestBadFrameEncodingRejected(t *testing.T) {
	t.Setenv("FRAME_ENCODING", "latin1")
	_, err := Load()
	assert.Error(t, err)
}

func TestExplicitAccountsFileKept(t *testing.T) {
	t.Setenv("ACCOUNTS_FILE", "/tmp/accounts.txt")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/accounts.txt", cfg.AccountsFile)
}
