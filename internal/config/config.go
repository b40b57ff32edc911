package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "TRACEDECK_CONFIG"

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Logging. An empty LogFormat means text for CLI commands and json for
	// the server.
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Worker pool
	WorkerCount  int           `yaml:"worker_count"`
	MaxQueueSize int           `yaml:"max_queue_size"`
	FileTimeout  time.Duration `yaml:"file_timeout"`

	// Size limits
	MaxFileBytes   int64 `yaml:"max_file_bytes"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Decoding
	SniffMagic           bool `yaml:"sniff_magic"`
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
	IncludeImageData     bool `yaml:"include_image_data"`
	LayoutRowHeight      int  `yaml:"layout_row_height"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		WorkerCount:          4,
		MaxQueueSize:         100,
		FileTimeout:          2 * time.Minute,
		MaxFileBytes:         100 << 20,
		MaxUploadBytes:       50 << 20,
		JobTTL:               1 * time.Hour,
		SniffMagic:           true,
		PDFFallbackPdftotext: true,
		IncludeImageData:     true,
		LayoutRowHeight:      100,
	}
}

// Load starts from Default, applies the YAML file named by TRACEDECK_CONFIG
// when set, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("TRACEDECK_API_KEY", c.APIKey)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.FileTimeout = envDuration("FILE_TIMEOUT", c.FileTimeout)

	c.MaxFileBytes = envInt64("MAX_FILE_BYTES", c.MaxFileBytes)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)

	c.SniffMagic = envBool("SNIFF_MAGIC", c.SniffMagic)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)
	c.IncludeImageData = envBool("INCLUDE_IMAGE_DATA", c.IncludeImageData)
	c.LayoutRowHeight = envInt("LAYOUT_ROW_HEIGHT", c.LayoutRowHeight)
}

func (c Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be > 0")
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be > 0")
	}
	if c.FileTimeout <= 0 {
		return fmt.Errorf("FILE_TIMEOUT must be > 0")
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("JOB_TTL must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.LayoutRowHeight < 1 {
		return fmt.Errorf("LAYOUT_ROW_HEIGHT must be >= 1")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
