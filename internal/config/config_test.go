package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/imagine"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvGeminiAPIKey, EnvOpenAIAPIKey, EnvModel, EnvAspectRatio, EnvStateDir,
		EnvDatabaseURL, EnvExportDir, EnvLogLevel, EnvLogFile,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, imagine.AspectRatio1x1, cfg.AspectRatio)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ".", cfg.ExportDir)
	assert.NotEmpty(t, cfg.StateDir)
	assert.ErrorIs(t, cfg.Validate(), ErrNoProvider)
}

func TestFromEnv_Values(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGeminiAPIKey, "g-key")
	t.Setenv(EnvModel, "nano-banana-2")
	t.Setenv(EnvAspectRatio, "16:9")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStateDir, "/tmp/imagine-state")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, imagine.ModelNanoBanana2, cfg.Model)
	assert.Equal(t, imagine.AspectRatio16x9, cfg.AspectRatio)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/imagine-state", cfg.StateDir)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAspectRatio, "2:1")
	_, err := FromEnv()
	assert.ErrorIs(t, err, imagine.ErrUnsupportedAspectRatio)

	clearEnv(t)
	t.Setenv(EnvLogLevel, "loud")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvOpenAIAPIKey)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=from-dotenv\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		os.Unsetenv(EnvOpenAIAPIKey)
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.OpenAIAPIKey)
}

func TestLoad_NoDotEnv(t *testing.T) {
	clearEnv(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.NoError(t, err)
}
