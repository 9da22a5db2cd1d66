package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Layout   LayoutConfig   `yaml:"layout"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Probe    ProbeConfig    `yaml:"probe"`
	Cascade  CascadeConfig  `yaml:"cascade"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// DatabaseConfig holds the optional job-history store configuration.
// An empty DSN disables history. A postgres:// DSN selects pgx, a
// file path or :memory: selects the embedded sqlite driver.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int           `yaml:"max_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// LayoutConfig holds the layout-analysis service configuration.
type LayoutConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Paddle        string `yaml:"paddle"`    // binary name or absolute path; if empty -> "paddleocr"
	Tesseract     string `yaml:"tesseract"` // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm      string `yaml:"pdftoppm"`  // rasterizer for scanned PDFs
	TesseractLang string `yaml:"tesseract_lang"`
	DPI           int    `yaml:"dpi"`
	PSM           int    `yaml:"psm"`
	MaxPages      int    `yaml:"max_pages"` // 0 = no limit
	ArtifactDir   string `yaml:"artifact_dir"`
}

// LLMConfig holds the configuration of the local LLM service.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ProbeConfig bounds each capability check at startup.
type ProbeConfig struct {
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// CascadeConfig holds thresholds and latency bounds for the executor.
type CascadeConfig struct {
	MinConfidence  float32       `yaml:"min_confidence"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`  // base per-adapter timeout
	TimeoutPerMB   time.Duration `yaml:"timeout_per_mb"`   // document size scaling
	AttemptCeiling time.Duration `yaml:"attempt_ceiling"`  // hard ceiling per attempt
	MaxUploadBytes int64         `yaml:"max_upload_bytes"` // request body bound
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr: getEnv("GRPC_ADDR", ":8081"),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Layout: LayoutConfig{
			BaseURL: getEnv("LAYOUT_URL", "http://127.0.0.1:5001"),
			Timeout: getEnvAsDuration("LAYOUT_TIMEOUT", 60*time.Second),
		},
		OCR: OCRConfig{
			Paddle:        getEnv("PADDLEOCR_BIN", "paddleocr"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			PSM:           getEnvAsInt("OCR_PSM", 6),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			ArtifactDir:   getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OLLAMA_URL", "http://127.0.0.1:11434"),
			Model:       getEnv("OLLAMA_MODEL", "gemma3:12b"),
			Temperature: getEnvAsFloat32("OLLAMA_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("OLLAMA_TIMEOUT", 90*time.Second),
		},
		Probe: ProbeConfig{
			CheckTimeout: getEnvAsDuration("PROBE_CHECK_TIMEOUT", 3*time.Second),
		},
		Cascade: CascadeConfig{
			MinConfidence:  getEnvAsFloat32("MIN_CONFIDENCE", 0.5),
			AttemptTimeout: getEnvAsDuration("ATTEMPT_TIMEOUT", 30*time.Second),
			TimeoutPerMB:   getEnvAsDuration("ATTEMPT_TIMEOUT_PER_MB", 10*time.Second),
			AttemptCeiling: getEnvAsDuration("ATTEMPT_CEILING", 2*time.Minute),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 32<<20)),
		},
	}
}

// ApplyFile overlays values from a YAML config file onto c. Missing
// keys keep their current (env or default) values.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Cascade.MinConfidence < 0 || c.Cascade.MinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "MIN_CONFIDENCE must be in [0,1]", ErrInvalidInput)
	}
	if c.Cascade.AttemptCeiling < c.Cascade.AttemptTimeout {
		return NewAppError("CONFIG_ERROR", "ATTEMPT_CEILING must be >= ATTEMPT_TIMEOUT", ErrInvalidInput)
	}
	return nil
}
