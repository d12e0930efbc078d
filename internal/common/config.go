package common

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Text     TextConfig
	LLM      LLMConfig
	Database DatabaseConfig
	Server   ServerConfig
	Batch    BatchConfig
}

// TextConfig holds PDF text extraction configuration
type TextConfig struct {
	Method    string // auto, pdftotext or native
	Pdftotext string // binary name or path
	MaxPages  int    // 0 = all pages
}

// LLMConfig holds missing-field resolver configuration
type LLMConfig struct {
	Provider         string // openai, ollama or none
	Model            string
	APIKey           string
	BaseURL          string
	OllamaHost       string
	Temperature      float64
	Timeout          time.Duration
	MaxAttempts      int
	RetryDelay       time.Duration
	MaxDocumentChars int
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// BatchConfig holds directory ingestion configuration
type BatchConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	Debounce       time.Duration
}

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// keys maps each setting to the environment variable that overrides it.
var keys = map[string]string{
	"text.method":            "PDF_TEXT_METHOD",
	"text.pdftotext":         "PDFTOTEXT",
	"text.max_pages":         "PDF_MAX_PAGES",
	"llm.provider":           "LLM_PROVIDER",
	"llm.model":              "LLM_MODEL",
	"llm.api_key":            "OPENAI_API_KEY",
	"llm.base_url":           "OPENAI_BASE_URL",
	"llm.ollama_host":        "OLLAMA_HOST",
	"llm.temperature":        "LLM_TEMPERATURE",
	"llm.timeout":            "LLM_TIMEOUT",
	"llm.max_attempts":       "LLM_MAX_ATTEMPTS",
	"llm.retry_delay":        "LLM_RETRY_DELAY",
	"llm.max_document_chars": "LLM_MAX_DOCUMENT_CHARS",
	"database.driver":        "DB_DRIVER",
	"database.dsn":           "DB_URL",
	"database.max_conns":     "DB_MAX_CONNS",
	"database.min_conns":     "DB_MIN_CONNS",
	"database.max_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":  "DB_DIAL_TIMEOUT",
	"server.grpc_addr":       "GRPC_ADDR",
	"batch.workers":          "BATCH_WORKERS",
	"batch.queue_size":       "BATCH_QUEUE_SIZE",
	"batch.process_timeout":  "BATCH_PROCESS_TIMEOUT",
	"batch.debounce":         "WATCH_DEBOUNCE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("text.method", "auto")
	v.SetDefault("text.pdftotext", "pdftotext")
	v.SetDefault("text.max_pages", 0)
	v.SetDefault("llm.provider", ProviderOllama)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", 1)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.max_document_chars", 16000)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:formextract.db?_pragma=busy_timeout(5000)")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_lifetime", 30*time.Minute)
	v.SetDefault("database.max_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.queue_size", 64)
	v.SetDefault("batch.process_timeout", 5*time.Minute)
	v.SetDefault("batch.debounce", 500*time.Millisecond)
}

// NewViper returns a viper instance with defaults and environment bindings.
// A non-empty cfgFile is read as well; a missing default config.yaml is not
// an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("formextract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config", err)
		}
	}
	return v, nil
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// environment variables, in increasing precedence.
func LoadConfig(cfgFile string) (*Config, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Text: TextConfig{
			Method:    v.GetString("text.method"),
			Pdftotext: v.GetString("text.pdftotext"),
			MaxPages:  v.GetInt("text.max_pages"),
		},
		LLM: LLMConfig{
			Provider:         v.GetString("llm.provider"),
			Model:            v.GetString("llm.model"),
			APIKey:           v.GetString("llm.api_key"),
			BaseURL:          v.GetString("llm.base_url"),
			OllamaHost:       v.GetString("llm.ollama_host"),
			Temperature:      v.GetFloat64("llm.temperature"),
			Timeout:          v.GetDuration("llm.timeout"),
			MaxAttempts:      v.GetInt("llm.max_attempts"),
			RetryDelay:       v.GetDuration("llm.retry_delay"),
			MaxDocumentChars: v.GetInt("llm.max_document_chars"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxConns:        v.GetInt32("database.max_conns"),
			MinConns:        v.GetInt32("database.min_conns"),
			MaxConnLifetime: v.GetDuration("database.max_lifetime"),
			MaxConnIdleTime: v.GetDuration("database.max_idle_time"),
			DialTimeout:     v.GetDuration("database.dial_timeout"),
		},
		Server: ServerConfig{
			GRPCAddr: v.GetString("server.grpc_addr"),
		},
		Batch: BatchConfig{
			Workers:        v.GetInt("batch.workers"),
			QueueSize:      v.GetInt("batch.queue_size"),
			ProcessTimeout: v.GetDuration("batch.process_timeout"),
			Debounce:       v.GetDuration("batch.debounce"),
		},
	}
	// OPENAI_MODEL is the historical name of the model setting
	if cfg.LLM.Model == "" && cfg.LLM.Provider == ProviderOpenAI {
		cfg.LLM.Model = os.Getenv("OPENAI_MODEL")
	}
	return cfg
}

// Validate checks the loaded configuration for consistency
func (c *Config) Validate() error {
	switch c.Text.Method {
	case "auto", "pdftotext", "native":
	default:
		return NewAppError(CodeConfig, "PDF_TEXT_METHOD must be auto, pdftotext or native", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "OPENAI_API_KEY is required for the openai provider", ErrInvalidInput)
		}
	case ProviderOllama:
		if c.LLM.OllamaHost == "" {
			return NewAppError(CodeConfig, "OLLAMA_HOST is required for the ollama provider", ErrInvalidInput)
		}
	case ProviderNone:
	default:
		return NewAppError(CodeConfig, "LLM_PROVIDER must be openai, ollama or none", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts < 1 {
		return NewAppError(CodeConfig, "LLM_MAX_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Batch.Workers < 1 {
		return NewAppError(CodeConfig, "BATCH_WORKERS must be at least 1", ErrInvalidInput)
	}
	return nil
}
