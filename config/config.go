package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabasePath      string
	ServerAddress     string
	JWTSecret         string
	CollectorsEnabled bool
	RocWindowDays     int
}

func Load() *Config {
	return &Config{
		DatabasePath:      getEnv("DATABASE_PATH", "./submeter-billing.db"),
		ServerAddress:     getEnv("SERVER_ADDRESS", ":8082"),
		JWTSecret:         getEnv("JWT_SECRET", "submeter-billing-secret-change-in-production"),
		CollectorsEnabled: getEnvBool("COLLECTORS_ENABLED", false),
		RocWindowDays:     getEnvInt("ROC_WINDOW_DAYS", 31),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
