package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTLSeconds int

	NATSURL     string
	NATSSubject string

	OllamaURL      string
	OllamaGenModel string

	StoragePath string

	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int

	ResilienceEnabled bool

	JanitorSweepSeconds int
	WorkerMetricsPort   string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RedisAddr:     mustEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: mustEnv("REDIS_PASSWORD", ""),
		RedisDB:       mustEnvInt("REDIS_DB", 0),

		SessionTTLSeconds: mustEnvInt("SESSION_TTL_SECONDS", 86400),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "intake.sessions.processed"),

		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		StoragePath: mustEnv("STORAGE_PATH", "./data/storage"),

		MaxUploadBytes: int64(mustEnvInt("MAX_UPLOAD_BYTES", 32<<20)),
		RateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		RateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 0),

		ResilienceEnabled: mustEnvBool("RESILIENCE_ENABLED", true),

		JanitorSweepSeconds: mustEnvInt("JANITOR_SWEEP_SECONDS", 300),
		WorkerMetricsPort:   mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
