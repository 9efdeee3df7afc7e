package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "pdftotext", cfg.OCR.Pdftotext)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1-nano", cfg.LLM.Model)
	assert.False(t, cfg.Pipeline.Verify)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://localhost/nominas")
	t.Setenv("DB_MAX_CONNS", "7")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("VERIFY", "true")
	t.Setenv("PAGE_TIMEOUT", "15s")
	t.Setenv("WORKERS", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, int32(7), cfg.Database.MaxConns)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.True(t, cfg.Pipeline.Verify)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.PageTimeout)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nominas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: postgres://file/db
ocr:
  dpi: 200
pipeline:
  verify: true
  page_timeout: 45s
llm:
  api_key: from-file
`), 0o600))
	t.Setenv("DB_URL", "postgres://env/db")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, "pdftoppm", cfg.OCR.Pdftoppm)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.PageTimeout)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [1, 2"), 0o600))
	_, err = LoadConfigFile(path)
	assert.Equal(t, "CONFIG_ERROR", ErrorCode(err))
}

func TestValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.Driver = "mysql"
	cfg.Pipeline.Workers = 0
	cfg.Pipeline.Verify = true
	cfg.LLM.APIKey = ""
	cfg.Metrics.Addr = "localhost"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "METRICS_ADDR")
	assert.Equal(t, "CONFIG_ERROR", ErrorCode(err))
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "WORKERS")
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestValidateMetricsAddr(t *testing.T) {
	cfg := LoadConfig()
	for _, addr := range []string{"", ":9090", "127.0.0.1:9090", "[::1]:9090"} {
		cfg.Metrics.Addr = addr
		assert.NoError(t, cfg.Validate(), addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOMINAS_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("NOMINAS_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("NOMINAS_TEST_VALUE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("NOMINAS_TEST_VALUE"))
}
