package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "financial", cfg.Dataset.Domain)
	assert.Equal(t, "./qa_cache", cfg.Cache.Dir)
	assert.Equal(t, "qa_cache.json", cfg.Cache.File)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 120, cfg.Anthropic.CallTimeoutSecs)
	assert.True(t, cfg.Anthropic.StreamResponses)
	assert.Equal(t, 5, cfg.Generator.MinSessions)
	assert.Equal(t, 10, cfg.Generator.MaxSessions)
	assert.Equal(t, 2, cfg.Generator.SessionThreshold)
	assert.Equal(t, 10, cfg.Generator.MinEvidences)
	assert.Equal(t, 15, cfg.Generator.MaxEvidences)
	assert.Equal(t, 8, cfg.Generator.MaxRetries)
	assert.Equal(t, 30, cfg.Validator.QueryTimeoutSecs)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `
dataset:
  input_path: ./corpus.json
  domain: medical
generator:
  min_sessions: 3
  max_sessions: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "medical", cfg.Dataset.Domain)
	assert.Equal(t, "./corpus.json", cfg.Dataset.InputPath)
	assert.Equal(t, 3, cfg.Generator.MinSessions)
	assert.Equal(t, 6, cfg.Generator.MaxSessions)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2, cfg.Generator.SessionThreshold)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QAGEN_DATASET_DOMAIN", "medical")
	t.Setenv("QAGEN_ANTHROPIC_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "medical", cfg.Dataset.Domain)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("dataset: ["), 0o644))

	_, err := Load()
	require.Error(t, err)
}
