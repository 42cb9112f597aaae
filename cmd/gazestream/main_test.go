package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHelp(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--help"}))
}

func TestRunBadFlag(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--no-such-flag"}))
}

func TestRunConfigError(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, 1, run([]string{"--config", filepath.Join(dir, "absent.hcl")}), "explicit config must exist")

	path := filepath.Join(dir, "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`outlet { kind = "carrier-pigeon" }`), 0o600))
	assert.Equal(t, 1, run([]string{"--config", path}))

	path = filepath.Join(dir, "ok.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`display { enable = false }`), 0o600))
	assert.Equal(t, 1, run([]string{"--config", path, "--log-level", "loud"}))
}

func TestRunConnectFailure(t *testing.T) {
	// reserve then release port, nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	dir := t.TempDir()
	path := filepath.Join(dir, "test.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`display { enable = false }`), 0o600))
	assert.Equal(t, 1, run([]string{"--config", path, "--address", addr, "--outlet", "none"}))
}
