package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigSeedsDataDirAndLogLevel(t *testing.T) {
	cfg := defaultConfig()

	require.Equal(t, defaultLogLevel, cfg.DebugLevel)
	require.Equal(t, defaultRPCPort, cfg.RPCPort)
	require.NotEmpty(t, cfg.DataDir)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.conf")
	require.False(t, fileExists(missing))

	present := filepath.Join(dir, "xlnd.conf")
	require.NoError(t, os.WriteFile(present, []byte("[Application Options]\n"), 0600))
	require.True(t, fileExists(present))
}

func TestConfigErrorUnwraps(t *testing.T) {
	inner := os.ErrNotExist
	err := &configError{inner}

	require.Equal(t, inner.Error(), err.Error())
	require.ErrorIs(t, err, inner)
}
