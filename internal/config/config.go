package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	APIBaseURL        string
	CallbackBaseURL   string
	LaunchMode        string
	PollIntervalMs    int
	PollMaxDurationMs int
	StatusPagePath    string
	DBDriver          string
	DBPath            string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:              getEnv("PORT", "8090"),
		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
		CallbackBaseURL:   getEnv("CALLBACK_BASE_URL", "http://localhost:8090"),
		LaunchMode:        getEnv("LAUNCH_MODE", "redirect"),
		PollIntervalMs:    getEnvInt("POLL_INTERVAL_MS", 3000),
		PollMaxDurationMs: getEnvInt("POLL_MAX_DURATION_MS", 300000),
		StatusPagePath:    getEnv("STATUS_PAGE_PATH", "/onboarding"),
		DBDriver:          getEnv("DB_DRIVER", "sqlite"),
		DBPath:            getEnv("DB_PATH", "./onboarding.db"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "onboarding"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
