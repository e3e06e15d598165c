package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds client configuration loaded from environment.
type Config struct {
	API     APIConfig
	Socket  SocketConfig
	Cache   CacheConfig
	Confirm ConfirmConfig
	Redis   RedisConfig
	HTTP    HTTPConfig
	Sync    SyncConfig
	Log     LogConfig
}

// APIConfig holds settings for the authenticated REST client.
type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// SocketConfig holds push connection settings.
type SocketConfig struct {
	URL               string
	PingInterval      time.Duration
	PongWait          time.Duration
	WriteWait         time.Duration
	ReconnectAttempts uint
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
}

// CacheConfig sizes the shared entity cache.
type CacheConfig struct {
	NumCounters  int64
	MaxEntries   int64
	FetchTimeout time.Duration
}

// ConfirmConfig sizes the background confirmation dispatcher.
type ConfirmConfig struct {
	Buffer  int
	Timeout time.Duration
}

// RedisConfig holds Redis connection settings for the persisted session.
type RedisConfig struct {
	Addr       string // empty keeps the session in memory
	Password   string
	DB         int
	SessionKey string
}

// HTTPConfig holds the local UI API settings.
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string // comma-separated, or "*" for all
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// SyncConfig controls periodic full refetch. Empty Schedule disables it.
type SyncConfig struct {
	Schedule string // cron expression, e.g. "@every 5m"
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		API: APIConfig{
			BaseURL:    strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:3000"), "/"),
			Timeout:    getEnvDuration("API_TIMEOUT", 15*time.Second),
			Attempts:   uint(getEnvInt("API_ATTEMPTS", 3)),
			RetryDelay: getEnvDuration("API_RETRY_DELAY", 500*time.Millisecond),
		},
		Socket: SocketConfig{
			URL:               getEnv("SOCKET_URL", "ws://localhost:3000/ws"),
			PingInterval:      getEnvDuration("SOCKET_PING_INTERVAL", 30*time.Second),
			PongWait:          getEnvDuration("SOCKET_PONG_WAIT", 60*time.Second),
			WriteWait:         getEnvDuration("SOCKET_WRITE_WAIT", 10*time.Second),
			ReconnectAttempts: uint(getEnvInt("SOCKET_RECONNECT_ATTEMPTS", 10)),
			ReconnectDelay:    getEnvDuration("SOCKET_RECONNECT_DELAY", time.Second),
			ReconnectMaxDelay: getEnvDuration("SOCKET_RECONNECT_MAX_DELAY", 30*time.Second),
		},
		Cache: CacheConfig{
			NumCounters:  int64(getEnvInt("CACHE_NUM_COUNTERS", 100000)),
			MaxEntries:   int64(getEnvInt("CACHE_MAX_ENTRIES", 10000)),
			FetchTimeout: getEnvDuration("CACHE_FETCH_TIMEOUT", 10*time.Second),
		},
		Confirm: ConfirmConfig{
			Buffer:  getEnvInt("CONFIRM_BUFFER", 256),
			Timeout: getEnvDuration("CONFIRM_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			SessionKey: getEnv("REDIS_SESSION_KEY", "epesportes:session:token"),
		},
		HTTP: HTTPConfig{
			Port:               getEnv("PORT", "8090"),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:19006"),
			ReadTimeout:        getEnvDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		},
		Sync: SyncConfig{
			Schedule: getEnv("SYNC_SCHEDULE", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s") or plain seconds ("15").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
