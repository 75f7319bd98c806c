package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHonorsPidDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPIDDir, dir)
	o := Default()
	assert.Equal(t, dir, o.PIDRoot)
	assert.Equal(t, 128, o.MaxAttempts)
	assert.InDelta(t, 0.002, o.BackoffBase, 1e-9)
}

func TestDefaultHonorsDebugEnv(t *testing.T) {
	t.Setenv(EnvDebug, "1")
	assert.True(t, Default().Debug)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	o, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default().MaxAttempts, o.MaxAttempts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fastipc.yml")
	require.NoError(t, os.WriteFile(path, []byte("maxAttempts: 16\nspin: 4\n"), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, o.MaxAttempts)
	assert.Equal(t, 4, o.Spin)
}
