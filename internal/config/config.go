package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey   = errors.New("MISTRAL_API_KEY is required")
	ErrMissingDB       = errors.New("DATABASE_URL is required")
	ErrInvalidWeights  = errors.New("score weights must be non-negative")
	ErrInvalidInterval = errors.New("timeouts and intervals must be positive")
)

type Config struct {
	Database  DatabaseConfig
	Provider  ProviderConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Region    RegionConfig
	Scoring   ScoringConfig
	Results   ResultsConfig
}

type DatabaseConfig struct {
	URL string
}

type ProviderConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	StreamTimeout     time.Duration
	MaxAttempts       int
	BackoffStep       time.Duration
	MaxHits           int
}

type LogConfig struct {
	Level   string
	Service string
}

type HTTPConfig struct {
	Addr string
}

type CacheConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	MinInterval time.Duration
}

type RegionConfig struct {
	Country string
	Cities  []string
}

type ScoringConfig struct {
	NameWeight    int
	CityWeight    int
	CountryWeight int
}

type ResultsConfig struct {
	MaxProfiles  int
	HistoryLimit int
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Provider: ProviderConfig{
			APIKey:            os.Getenv("MISTRAL_API_KEY"),
			Model:             getEnvOrDefault("MISTRAL_MODEL", "mistral-medium-latest"),
			BaseURL:           os.Getenv("MISTRAL_BASE_URL"),
			RequestsPerSecond: getEnvFloatOrDefault("MISTRAL_REQUESTS_PER_SECOND", 1),
			Burst:             getEnvIntOrDefault("MISTRAL_BURST", 2),
			StreamTimeout:     time.Duration(getEnvIntOrDefault("STREAM_TIMEOUT_SEC", 45)) * time.Second,
			MaxAttempts:       getEnvIntOrDefault("PROVIDER_MAX_ATTEMPTS", 3),
			BackoffStep:       time.Duration(getEnvIntOrDefault("PROVIDER_BACKOFF_MS", 1000)) * time.Millisecond,
			MaxHits:           getEnvIntOrDefault("MAX_HITS", 40),
		},
		Log: LogConfig{
			Level:   getEnvOrDefault("LOG_LEVEL", "info"),
			Service: getEnvOrDefault("SERVICE_NAME", DefaultServiceName),
		},
		HTTP: HTTPConfig{
			Addr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		},
		Cache: CacheConfig{
			TTL:           time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 3600)) * time.Second,
			SweepInterval: time.Duration(getEnvIntOrDefault("CACHE_SWEEP_SEC", 300)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			MinInterval: time.Duration(getEnvIntOrDefault("RATE_LIMIT_INTERVAL_SEC", 10)) * time.Second,
		},
		Region: RegionConfig{
			Country: getEnvOrDefault("REGION_COUNTRY", "Ireland"),
			Cities:  getEnvListOrDefault("REGION_CITIES", []string{"Dublin"}),
		},
		Scoring: ScoringConfig{
			NameWeight:    getEnvIntOrDefault("SCORE_NAME_WEIGHT", 60),
			CityWeight:    getEnvIntOrDefault("SCORE_CITY_WEIGHT", 25),
			CountryWeight: getEnvIntOrDefault("SCORE_COUNTRY_WEIGHT", 15),
		},
		Results: ResultsConfig{
			MaxProfiles:  getEnvIntOrDefault("MAX_PROFILES", 10),
			HistoryLimit: getEnvIntOrDefault("HISTORY_LIMIT", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Database.URL == "" {
		return ErrMissingDB
	}
	if c.Scoring.NameWeight < 0 || c.Scoring.CityWeight < 0 || c.Scoring.CountryWeight < 0 {
		return ErrInvalidWeights
	}
	if c.Provider.StreamTimeout <= 0 || c.Cache.TTL <= 0 || c.RateLimit.MinInterval <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvListOrDefault - значения через запятую, пустые выкидываются
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
