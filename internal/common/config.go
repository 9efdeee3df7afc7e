package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Pdftotext        string `yaml:"pdftotext"`
	Pdftoppm         string `yaml:"pdftoppm"`
	Tesseract        string `yaml:"tesseract"`
	TesseractLang    string `yaml:"tesseract_lang"`
	DPI              int    `yaml:"dpi"`
	MaxPages         int    `yaml:"max_pages"`
	ArtifactCacheDir string `yaml:"artifact_cache_dir"`
}

// LLMConfig holds verification model configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PipelineConfig holds page processing configuration
type PipelineConfig struct {
	Verify      bool          `yaml:"verify"`
	Workers     int           `yaml:"workers"`
	PageTimeout time.Duration `yaml:"page_timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var reListenAddr = regexp.MustCompile(`^[\w.\-\[\]:]*:\d{1,5}$`)

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             "nominas.db",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		OCR: OCRConfig{
			Pdftotext:        "pdftotext",
			Pdftoppm:         "pdftoppm",
			TesseractLang:    "spa",
			DPI:              144,
			MaxPages:         200,
			ArtifactCacheDir: os.TempDir(),
		},
		LLM: LLMConfig{
			Provider:  ProviderOpenAI,
			Model:     "gpt-4.1-nano",
			MaxTokens: 1200,
			Timeout:   60 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:     2,
			PageTimeout: 2 * time.Minute,
			CacheTTL:    time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := defaultConfig()
	cfg.applyEnv()
	return cfg
}

// LoadConfigFile reads a YAML file over the defaults; environment variables
// still take precedence over the file.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, "read config")
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "parse "+path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database = DatabaseConfig{
		Driver:           getEnv("DB_DRIVER", c.Database.Driver),
		DSN:              getEnv("DB_URL", c.Database.DSN),
		MaxConns:         getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns),
		MinConns:         getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns),
		MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime),
		MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime),
		DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout),
		StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout),
	}
	c.OCR = OCRConfig{
		Pdftotext:        getEnv("PDFTOTEXT_PATH", c.OCR.Pdftotext),
		Pdftoppm:         getEnv("PDFTOPPM_PATH", c.OCR.Pdftoppm),
		Tesseract:        getEnv("TESSERACT_PATH", c.OCR.Tesseract),
		TesseractLang:    getEnv("TESSERACT_LANG", c.OCR.TesseractLang),
		DPI:              getEnvAsInt("OCR_DPI", c.OCR.DPI),
		MaxPages:         getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages),
		ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", c.OCR.ArtifactCacheDir),
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	keyVar := "OPENAI_API_KEY"
	if provider == ProviderGemini {
		keyVar = "GEMINI_API_KEY"
	}
	c.LLM = LLMConfig{
		Provider:    provider,
		Model:       getEnv("LLM_MODEL", c.LLM.Model),
		APIKey:      getEnv("LLM_API_KEY", getEnv(keyVar, c.LLM.APIKey)),
		BaseURL:     getEnv("LLM_BASE_URL", c.LLM.BaseURL),
		Temperature: getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature),
		MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", c.LLM.MaxTokens),
		Timeout:     getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout),
	}
	c.Pipeline = PipelineConfig{
		Verify:      getEnvAsBool("VERIFY", c.Pipeline.Verify),
		Workers:     getEnvAsInt("WORKERS", c.Pipeline.Workers),
		PageTimeout: getEnvAsDuration("PAGE_TIMEOUT", c.Pipeline.PageTimeout),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", c.Pipeline.CacheTTL),
	}
	c.Log = LogConfig{
		Level:  getEnv("LOG_LEVEL", c.Log.Level),
		Format: getEnv("LOG_FORMAT", c.Log.Format),
	}
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_DRIVER", c.Database.Driver, Required, OneOf(DriverSQLite, DriverPostgres)).
		Field("DB_URL", c.Database.DSN, Required).
		Field("OCR_DPI", c.OCR.DPI, Positive).
		Field("WORKERS", c.Pipeline.Workers, Positive).
		Field("METRICS_ADDR", c.Metrics.Addr, Matches(reListenAddr, "host:port listen address"))
	if c.Pipeline.Verify {
		v.Field("LLM_PROVIDER", c.LLM.Provider, Required, OneOf(ProviderOpenAI, ProviderGemini)).
			Field("LLM_API_KEY", c.LLM.APIKey, Required).
			Field("LLM_MODEL", c.LLM.Model, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", "invalid configuration", fmt.Errorf("%w: %w", ErrInvalidInput, v.Error()))
	}
	return nil
}
