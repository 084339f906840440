package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(path string, env map[string]string) *Loader {
	l := NewLoader(path)
	l.getenv = func(key string) string { return env[key] }
	return l
}

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	l := newTestLoader(filepath.Join(dir, "missing.json"), nil)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Executor, cfg.Executor)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "vtool.log"), cfg.Logging.File)
}

func TestLoaderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vtool.json")
	content := `{
  "data_dir": "` + filepath.ToSlash(dir) + `",
  "executor": {"attempt_budget": 5, "fault_rate": 0.1},
  "virtual_tools": {"promotion_threshold": 2},
  "ai": {"profiles": [{"id": "main", "provider": "anthropic", "api_key": "sk-ant-abc", "priority": 1}]}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := newTestLoader(path, map[string]string{"OPENAI_API_KEY": "sk-env"}).Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Executor.AttemptBudget)
	assert.Equal(t, 0.1, cfg.Executor.FaultRate)
	assert.Equal(t, 2, cfg.VirtualTools.PromotionThreshold)
	// untouched sections keep their defaults
	assert.Equal(t, 20, cfg.Conversation.TurnBudget)
	require.Len(t, cfg.AI.Profiles, 1, "file profiles take precedence over env keys")
	assert.Equal(t, "anthropic", cfg.AI.Profiles[0].Provider)
}

func TestLoaderEnvProfiles(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{
		"OPENAI_API_KEY":     "sk-openai",
		"ANTHROPIC_API_KEY":  "sk-ant-key",
		"VTOOL_OPENAI_MODEL": "gpt-4o",
	}

	cfg, err := newTestLoader(filepath.Join(dir, "none.json"), env).Load()
	require.NoError(t, err)

	require.Len(t, cfg.AI.Profiles, 2)
	assert.Equal(t, "env-openai", cfg.AI.Profiles[0].ID)
	assert.Equal(t, "gpt-4o", cfg.AI.Profiles[0].Model)
	assert.Equal(t, "env-anthropic", cfg.AI.Profiles[1].ID)
	assert.Less(t, cfg.AI.Profiles[0].Priority, cfg.AI.Profiles[1].Priority)
}

func TestLoaderInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vtool.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := newTestLoader(path, nil).Load()
	assert.Error(t, err)
}

func TestLoaderSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "vtool.json")
	l := newTestLoader(path, nil)

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Conversation.TurnBudget = 7
	require.NoError(t, l.Save(cfg))

	loaded, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Conversation.TurnBudget)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "/tmp/x.json", NewLoader("/tmp/x.json").GetConfigPath())
	assert.Equal(t, "vtool.json", filepath.Base(NewLoader("").GetConfigPath()))
}
