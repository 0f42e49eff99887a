package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache drivers accepted by CACHE_DRIVER.
const (
	CacheDriverMemory   = "memory"
	CacheDriverSQLite   = "sqlite"
	CacheDriverPostgres = "postgres"
)

// Secondary nutrition providers accepted by SECONDARY_PROVIDER.
const (
	SecondaryUSDA   = "usda"
	SecondaryEdamam = "edamam"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64
	MaxImageBytes      int64
	TrustedPhotoHosts  []string
	AllowedOrigins     []string
	JWTSecret          string
	LogLevel           string

	CacheDriver        string
	SQLitePath         string
	DatabaseURL        string
	DetectionCacheTTL  time.Duration
	DetectionMemoryTTL time.Duration
	NutritionCacheTTL  time.Duration

	GoogleProjectID       string
	GoogleLocation        string
	GoogleCredentialsFile string
	VisionModel           string

	FatSecretClientID     string
	FatSecretClientSecret string
	USDAAPIKey            string
	EdamamAppID           string
	EdamamAppKey          string
	SecondaryProvider     string
	ProviderRPS           float64

	AzureStorageAccount string
	AzureStorageKey     string
	S3FetchEnabled      bool
	AWSRegion           string

	MaxItems                     int
	LookupBatchSize              int
	DetectionConfidenceThreshold float64
	PortionConfidenceThreshold   float64
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// LoadFromEnv reads an optional .env file and then the process environment.
func LoadFromEnv() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 45*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 1*1024*1024),
		MaxImageBytes:      parseIntOrDefault("MAX_IMAGE_BYTES", 10*1024*1024),
		TrustedPhotoHosts:  parseListOrDefault("TRUSTED_PHOTO_HOSTS", []string{".blob.core.windows.net", ".amazonaws.com", "storage.googleapis.com", ".supabase.co"}),
		AllowedOrigins:     parseListOrDefault("ALLOWED_ORIGINS", nil),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),

		CacheDriver:        strings.ToLower(getEnvOrDefault("CACHE_DRIVER", CacheDriverSQLite)),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "meal_cache.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DetectionCacheTTL:  parseDurationOrDefault("DETECTION_CACHE_TTL", 10*time.Minute),
		DetectionMemoryTTL: parseDurationOrDefault("DETECTION_MEMORY_TTL", 60*time.Second),
		NutritionCacheTTL:  parseDurationOrDefault("NUTRITION_CACHE_TTL", 24*time.Hour),

		GoogleProjectID:       os.Getenv("GOOGLE_PROJECT_ID"),
		GoogleLocation:        getEnvOrDefault("GOOGLE_LOCATION", "us-central1"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		VisionModel:           getEnvOrDefault("VISION_MODEL", "gemini-1.5-flash-002"),

		FatSecretClientID:     os.Getenv("FATSECRET_CLIENT_ID"),
		FatSecretClientSecret: os.Getenv("FATSECRET_CLIENT_SECRET"),
		USDAAPIKey:            os.Getenv("USDA_API_KEY"),
		EdamamAppID:           os.Getenv("EDAMAM_APP_ID"),
		EdamamAppKey:          os.Getenv("EDAMAM_APP_KEY"),
		SecondaryProvider:     strings.ToLower(getEnvOrDefault("SECONDARY_PROVIDER", SecondaryUSDA)),
		ProviderRPS:           parseFloatOrDefault("PROVIDER_RPS", 5),

		AzureStorageAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:     os.Getenv("AZURE_STORAGE_KEY"),
		S3FetchEnabled:      parseBoolOrDefault("S3_FETCH_ENABLED", false),
		AWSRegion:           getEnvOrDefault("AWS_REGION", "us-east-1"),

		MaxItems:                     int(parseIntOrDefault("MAX_ITEMS", 15)),
		LookupBatchSize:              int(parseIntOrDefault("LOOKUP_BATCH_SIZE", 3)),
		DetectionConfidenceThreshold: parseFloatOrDefault("DETECTION_CONFIDENCE_THRESHOLD", 0.65),
		PortionConfidenceThreshold:   parseFloatOrDefault("PORTION_CONFIDENCE_THRESHOLD", 0.5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be > 0 (got %d)", c.MaxImageBytes)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.DetectionCacheTTL <= 0 || c.DetectionMemoryTTL <= 0 || c.NutritionCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be > 0")
	}
	if c.MaxItems <= 0 || c.LookupBatchSize <= 0 {
		return fmt.Errorf("MAX_ITEMS and LOOKUP_BATCH_SIZE must be > 0 (got %d, %d)", c.MaxItems, c.LookupBatchSize)
	}
	if c.ProviderRPS <= 0 {
		return fmt.Errorf("PROVIDER_RPS must be > 0 (got %v)", c.ProviderRPS)
	}
	for name, v := range map[string]float64{
		"DETECTION_CONFIDENCE_THRESHOLD": c.DetectionConfidenceThreshold,
		"PORTION_CONFIDENCE_THRESHOLD":   c.PortionConfidenceThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1] (got %v)", name, v)
		}
	}
	switch c.CacheDriver {
	case CacheDriverMemory, CacheDriverSQLite:
	case CacheDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when CACHE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER: %q", c.CacheDriver)
	}
	switch c.SecondaryProvider {
	case SecondaryUSDA, SecondaryEdamam:
	default:
		return fmt.Errorf("unsupported SECONDARY_PROVIDER: %q", c.SecondaryProvider)
	}
	if len(c.TrustedPhotoHosts) == 0 {
		return fmt.Errorf("TRUSTED_PHOTO_HOSTS must list at least one host")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// parseListOrDefault splits a comma-separated value, dropping blanks.
func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
