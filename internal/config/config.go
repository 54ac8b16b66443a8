package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	StaticDir      string
	MaxConnections int
	ChatRateLimit  int
	WinAmountCap   int64
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		StaticDir: getEnv("STATIC_DIR", "web/static"),
	}

	maxConns, err := getEnvInt("MAX_CONNECTIONS", 500)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", maxConns)
	}
	cfg.MaxConnections = maxConns

	chatRate, err := getEnvInt("CHAT_RATE_LIMIT", 6)
	if err != nil {
		return nil, err
	}
	if chatRate <= 0 {
		return nil, fmt.Errorf("CHAT_RATE_LIMIT must be positive, got %d", chatRate)
	}
	cfg.ChatRateLimit = chatRate

	winCap, err := getEnvInt("WIN_AMOUNT_CAP", 1_000_000)
	if err != nil {
		return nil, err
	}
	if winCap <= 0 {
		return nil, fmt.Errorf("WIN_AMOUNT_CAP must be positive, got %d", winCap)
	}
	cfg.WinAmountCap = int64(winCap)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}
