package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr         string
	DatabasePath     string
	LogLevel         string
	LogFormat        string
	UserAgent        string
	ProviderTimeout  time.Duration
	RedisURL         string
	CacheTTL         time.Duration
	CacheDisabled    bool
	JackettURL       string
	JackettAPIKey    string
	JackettSyncEvery time.Duration
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8090"),
		DatabasePath:     getEnv("DB_PATH", "torrentsearch.db"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:        getEnv("SEARCH_USER_AGENT", "torrentsearch/1.0"),
		ProviderTimeout:  time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisURL:         getEnv("REDIS_URL", ""),
		CacheTTL:         time.Duration(getEnvInt("SEARCH_CACHE_TTL_MINUTES", 5)) * time.Minute,
		CacheDisabled:    getEnvBool("SEARCH_CACHE_DISABLED", false),
		JackettURL:       getEnv("JACKETT_URL", ""),
		JackettAPIKey:    strings.TrimSpace(os.Getenv("JACKETT_API_KEY")),
		JackettSyncEvery: time.Duration(getEnvInt("JACKETT_SYNC_MINUTES", 0)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
