package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvFormat, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "taskpilot.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, "taskpilot.log"), cfg.LogFilePath())
	assert.Zero(t, cfg.PersistTimeout())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database: data/tasks.db
logLevel: debug
reorder:
  persistTimeout: 3s
tui:
  glyphs: ascii
`), 0o644))
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvFormat, "edn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "tasks.db"), cfg.DatabasePath())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "edn", cfg.Format)
	assert.Equal(t, 3*time.Second, cfg.PersistTimeout())
	assert.Equal(t, "ascii", cfg.TUI.Glyphs)

	t.Setenv(EnvDB, "/abs/override.db")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/override.db", cfg.DatabasePath())
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvFormat, "")
	for name, body := range map[string]string{
		"timeout":  "reorder:\n  persistTimeout: soon\n",
		"negative": "reorder:\n  persistTimeout: -1s\n",
		"format":   "format: xml\n",
		"glyphs":   "tui:\n  glyphs: emoji\n",
		"yaml":     "database: [unterminated\n",
	} {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		require.Error(t, err, name)
	}
}

func TestSave_RoundTripKeepsBackup(t *testing.T) {
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvFormat, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Save(path, &Config{Database: "one.db"}))
	require.NoError(t, Save(path, &Config{Database: "two.db", TUI: TUIConfig{Glyphs: "ascii"}}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "two.db", cfg.Database)
	assert.Equal(t, "ascii", cfg.TUI.Glyphs)

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(bak), "one.db")
}
