package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HEARING_CONFIG", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, StoreBackendFile, cfg.StoreBackend)
	assert.Equal(t, 5*time.Millisecond, cfg.CharDelay)
	assert.True(t, cfg.SummaryOnSave)
	assert.Equal(t, DefaultModel, cfg.DefaultLLMModel())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEARING_CONFIG", "")
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("CHAT_CHAR_DELAY_MS", "0")
	t.Setenv("SUMMARY_ON_SAVE", "false")
	t.Setenv("STORE_BACKEND", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.HTTPPort)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultLLMModel())
	assert.Equal(t, time.Duration(0), cfg.CharDelay)
	assert.False(t, cfg.SummaryOnSave)
	assert.Equal(t, StoreBackendSQLite, cfg.StoreBackend)
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 4000\ndata_dir: /srv/hearing\nllm_model: from-file\n"), 0o644))

	t.Setenv("HEARING_CONFIG", path)
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.HTTPPort)
	assert.Equal(t, "/srv/hearing", cfg.DataDir)
	assert.Equal(t, "from-env", cfg.LLMModel)
}

func TestLoadYAMLFileDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearing.yaml")
	body := "llm_timeout_ms: 1500\nchat_char_delay_ms: 0\nws_write_timeout_ms: 200\nws_read_timeout_ms: 300\nsummary_timeout_ms: 4000\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("HEARING_CONFIG", path)
	t.Setenv("LLM_TIMEOUT_MS", "")
	t.Setenv("CHAT_CHAR_DELAY_MS", "")
	t.Setenv("WS_WRITE_TIMEOUT_MS", "")
	t.Setenv("WS_READ_TIMEOUT_MS", "")
	t.Setenv("SUMMARY_TIMEOUT_MS", "9000")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("HTTP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.LLMTimeout)
	assert.Equal(t, time.Duration(0), cfg.CharDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.WSWriteTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.WSReadTimeout)
	// The environment still wins over the file.
	assert.Equal(t, 9*time.Second, cfg.SummaryTimeout)
}

func TestLoadYAMLFileRejectsNegativeDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm_timeout_ms: -1\n"), 0o644))
	t.Setenv("HEARING_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("HEARING_CONFIG", "")
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	assert.Error(t, err)
}
