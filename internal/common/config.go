package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Fetch    FetchConfig
	SerpAPI  SerpAPIConfig
	Pipeline PipelineConfig
	Daemon   DaemonConfig
}

// StoreConfig holds baseline store configuration
type StoreConfig struct {
	Driver           string // "sqlite" | "postgres" | "memory"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	VisionAPIKey   string
	VisionEndpoint string
	Tesseract      string
	TesseractLang  string
	TessdataDir    string
	Pdftotext      string
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	CallTimeout    time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Models      []string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	JSONMode    bool // send response_format=json_object
}

// FetchConfig holds page fetch and image download configuration
type FetchConfig struct {
	FirecrawlAPIKey  string
	FirecrawlBaseURL string
	UserAgent        string
	PageTimeout      time.Duration
	DownloadTimeout  time.Duration
	MaxImageBytes    int64
}

// SerpAPIConfig holds AI Overview and search ads configuration
type SerpAPIConfig struct {
	APIKey   string
	BaseURL  string
	Location string
	Timeout  time.Duration
	AdsLimit int
}

// PipelineConfig holds orchestration configuration
type PipelineConfig struct {
	CompetitorsFile       string
	OutputDir             string
	MaxConcurrency        int
	CompetitorConcurrency int
	CompetitorTimeout     time.Duration
	DedupThreshold        float64
	DedupMaxHashDistance  int
}

// DaemonConfig holds scheduler configuration for cmd/promod
type DaemonConfig struct {
	Interval   time.Duration
	HealthAddr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:           getEnv("STORE_DRIVER", "sqlite"),
			DSN:              getEnv("STORE_DSN", "./data/baseline.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 5),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		OCR: OCRConfig{
			VisionAPIKey:   getEnv("GOOGLE_VISION_API_KEY", ""),
			VisionEndpoint: getEnv("GOOGLE_VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate"),
			Tesseract:      getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			Pdftotext:      getEnv("PDFTOTEXT_BIN", "pdftotext"),
			MaxAttempts:    getEnvAsInt("OCR_MAX_RETRIES", 3),
			InitialDelay:   getEnvAsDuration("OCR_INITIAL_RETRY_DELAY", time.Second),
			MaxDelay:       getEnvAsDuration("OCR_MAX_RETRY_DELAY", 10*time.Second),
			CallTimeout:    getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.perplexity.ai"),
			APIKey:      getEnv("LLM_API_KEY", os.Getenv("PERPLEXITY_API_KEY")),
			Models:      getEnvAsList("LLM_MODELS", []string{"sonar", "sonar-pro"}),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 500),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			JSONMode:    getEnvAsBool("LLM_JSON_MODE", false),
		},
		Fetch: FetchConfig{
			FirecrawlAPIKey:  getEnv("FIRECRAWL_API_KEY", ""),
			FirecrawlBaseURL: getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
			UserAgent:        getEnv("FETCH_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"),
			PageTimeout:      getEnvAsDuration("FETCH_PAGE_TIMEOUT", 60*time.Second),
			DownloadTimeout:  getEnvAsDuration("DOWNLOAD_TIMEOUT", 10*time.Second),
			MaxImageBytes:    int64(getEnvAsInt("DOWNLOAD_MAX_BYTES", 15<<20)),
		},
		SerpAPI: SerpAPIConfig{
			APIKey:   getEnv("SERPAPI_KEY", ""),
			BaseURL:  getEnv("SERPAPI_URL", "https://serpapi.com/search"),
			Location: getEnv("SERPAPI_LOCATION", "Edmonton, AB, Canada"),
			Timeout:  getEnvAsDuration("SERPAPI_TIMEOUT", 30*time.Second),
			AdsLimit: getEnvAsInt("SERPAPI_ADS_LIMIT", 2),
		},
		Pipeline: PipelineConfig{
			CompetitorsFile:       getEnv("COMPETITORS_FILE", "./config/competitors.json"),
			OutputDir:             getEnv("OUTPUT_DIR", "./data/promotions"),
			MaxConcurrency:        getEnvAsInt("MAX_CONCURRENCY", 3),
			CompetitorConcurrency: getEnvAsInt("MAX_COMPETITOR_CONCURRENCY", 3),
			CompetitorTimeout:     getEnvAsDuration("COMPETITOR_TIMEOUT", 10*time.Minute),
			DedupThreshold:        getEnvAsFloat64("DEDUP_THRESHOLD", 0.85),
			DedupMaxHashDistance:  getEnvAsInt("DEDUP_MAX_HASH_DISTANCE", 6),
		},
		Daemon: DaemonConfig{
			Interval:   getEnvAsDuration("RUN_INTERVAL", 24*time.Hour),
			HealthAddr: getEnv("HEALTH_ADDR", ":8081"),
		},
	}
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be sqlite, postgres or memory", ErrInvalidInput)
	}
	if c.Store.DSN == "" && c.Store.Driver != "memory" {
		return NewAppError("CONFIG_ERROR", "STORE_DSN is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	if len(c.LLM.Models) == 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MODELS is required", ErrInvalidInput)
	}
	if c.OCR.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_RETRIES must be at least 1", ErrInvalidInput)
	}
	if c.Pipeline.MaxConcurrency < 1 || c.Pipeline.CompetitorConcurrency < 1 {
		return NewAppError("CONFIG_ERROR", "concurrency limits must be at least 1", ErrInvalidInput)
	}
	if c.Pipeline.DedupThreshold <= 0 || c.Pipeline.DedupThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "DEDUP_THRESHOLD must be in (0, 1]", ErrInvalidInput)
	}
	if c.Daemon.Interval <= 0 {
		return NewAppError("CONFIG_ERROR", "RUN_INTERVAL must be positive", ErrInvalidInput)
	}
	return nil
}
