package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr  string
	UploadDir string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	OCR        OCRConfig
	GSTLookup  GSTLookupConfig
	HSNLookup  HSNLookupConfig
	Classifier ClassifierConfig

	RateLimit RateLimitConfig
}

// OCRConfig configures the vision OCR provider.
type OCRConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// GSTLookupConfig configures the GST registry lookup provider.
type GSTLookupConfig struct {
	Host    string
	APIKey  string
	Timeout time.Duration
}

// HSNLookupConfig configures the HSN/SAC tax lookup provider.
type HSNLookupConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ClassifierConfig configures the anomaly classifier provider.
type ClassifierConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// RateLimitConfig configures the redis-backed upload limiter.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UploadRate  float64
	UploadBurst int

	UploadLockTTLSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "fintel"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		UploadDir: getenv("UPLOAD_DIR", "uploads"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "fintel"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		OCR: OCRConfig{
			Endpoint: getenv("OCR_ENDPOINT", ""),
			APIKey:   strings.TrimSpace(getenv("OCR_API_KEY", "")),
			Model:    getenv("OCR_MODEL", "vision-latest"),
			Timeout:  getenvDuration("OCR_TIMEOUT", 60*time.Second),
		},
		GSTLookup: GSTLookupConfig{
			Host:    getenv("GST_LOOKUP_HOST", "gst-insights-api1.p.rapidapi.com"),
			APIKey:  strings.TrimSpace(getenv("GST_LOOKUP_API_KEY", "")),
			Timeout: getenvDuration("GST_LOOKUP_TIMEOUT", 10*time.Second),
		},
		HSNLookup: HSNLookupConfig{
			BaseURL: getenv("HSN_LOOKUP_BASE_URL", "https://api.taxlookup.fastgst.in"),
			APIKey:  strings.TrimSpace(getenv("HSN_LOOKUP_API_KEY", "")),
			Timeout: getenvDuration("HSN_LOOKUP_TIMEOUT", 15*time.Second),
		},
		Classifier: ClassifierConfig{
			Endpoint: getenv("CLASSIFIER_ENDPOINT", ""),
			Timeout:  getenvDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		},

		RateLimit: RateLimitConfig{
			Enabled:              getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:            strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword:        strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:              getenvInt("RATE_LIMIT_REDIS_DB", 0),
			UploadRate:           getenvFloat("RATE_LIMIT_UPLOAD_RATE", 2),
			UploadBurst:          getenvInt("RATE_LIMIT_UPLOAD_BURST", 5),
			UploadLockTTLSeconds: getenvInt("RATE_LIMIT_UPLOAD_LOCK_TTL", 30),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
