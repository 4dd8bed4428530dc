package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {

	path := filepath.Join(t.TempDir(), "wyvern.yaml")

	content := []byte(`
pool_size: 16
data_file: /tmp/test.db
direct_io: true
logger:
  level: debug
  format: json
metrics:
  enabled: true
  port: 2112
`)

	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 16, cfg.PoolSize)
	assert.Equal(t, "/tmp/test.db", cfg.DataFile)
	assert.True(t, cfg.DirectIO)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 2112, cfg.Metrics.Port)
}

func TestLoadFillsDefaults(t *testing.T) {

	path := filepath.Join(t.TempDir(), "wyvern.yaml")

	require.NoError(t, os.WriteFile(path, []byte("data_file: custom.db\n"), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, Default().PoolSize, cfg.PoolSize)
	assert.Equal(t, "custom.db", cfg.DataFile)
}

func TestLoadRejectsInvalidPoolSize(t *testing.T) {

	path := filepath.Join(t.TempDir(), "wyvern.yaml")

	require.NoError(t, os.WriteFile(path, []byte("pool_size: -1\n"), 0644))

	_, err := Load(path)

	assert.Error(t, err)
}
