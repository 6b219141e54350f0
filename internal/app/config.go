package app

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	// RedisURL enables the Redis cache layer; empty = memory-only cache.
	RedisURL string

	DebridBaseURL string
	DebridToken   string
	DebridRPS     int64

	LogLevel  string
	LogFormat string

	// Environment tags emitted traces (deployment.environment).
	Environment string
	// OTLPEndpoint enables tracing when set; empty = tracing disabled.
	OTLPEndpoint    string
	TraceSampleRate float64

	BulkMaxConcurrency int
	BulkItemDelayMs    int64
	BulkItemTimeoutMs  int64

	CacheTTLMinutes int
	CacheMaxEntries int

	SyncIntervalMinutes  int64
	HistoryRetentionDays int64

	RateLimitRPS   int64
	RateLimitBurst int

	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "debridops"),
		RedisURL:      getEnv("REDIS_URL", ""),

		DebridBaseURL: getEnv("DEBRID_API_URL", "https://api.real-debrid.com/rest/1.0"),
		DebridToken:   getEnv("DEBRID_API_TOKEN", ""),
		DebridRPS:     getEnvInt64("DEBRID_RATE_LIMIT_RPS", 4),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		Environment:     strings.ToLower(getEnv("DEPLOYMENT_ENV", "dev")),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRate: getEnvFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),

		BulkMaxConcurrency: int(getEnvInt64("BULK_MAX_CONCURRENCY", 3)),
		BulkItemDelayMs:    getEnvInt64("BULK_ITEM_DELAY_MS", 100),
		BulkItemTimeoutMs:  getEnvInt64("BULK_ITEM_TIMEOUT_MS", 30000),

		CacheTTLMinutes: int(getEnvInt64("CACHE_TTL_MINUTES", 15)),
		CacheMaxEntries: int(getEnvInt64("CACHE_MAX_ENTRIES", 10000)),

		SyncIntervalMinutes:  getEnvInt64("LIBRARY_SYNC_INTERVAL_MINUTES", 30),
		HistoryRetentionDays: getEnvInt64("HISTORY_RETENTION_DAYS", 30),

		RateLimitRPS:   getEnvInt64("RATE_LIMIT_RPS", 100),
		RateLimitBurst: int(getEnvInt64("RATE_LIMIT_BURST", 200)),

		CORSAllowedOrigins: parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return fallback
	}
	return parsed
}

func parseCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
