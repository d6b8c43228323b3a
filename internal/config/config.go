package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the server, worker and CLI binaries
type Config struct {
	Env                     string
	Port                    string
	AppURL                  string
	DatabaseURL             string
	RedisURL                string
	FirebaseCredentialsPath string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	PlaceCacheTTL      time.Duration
	NotifyTimeout      time.Duration
	WorkerInterval     time.Duration
	PurgeRetentionDays int
}

// Load reads .env (if present) and the process environment
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	return Config{
		Env:                     getEnv("ENV", "development"),
		Port:                    getEnv("PORT", "8080"),
		AppURL:                  getEnv("APP_URL", "http://localhost:8080"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisURL:                os.Getenv("REDIS_URL"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),

		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPPort:  getEnv("SMTP_PORT", "587"),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: getEnv("EMAIL_FROM", "no-reply@tripplan.local"),

		PlaceCacheTTL:      getDuration("PLACE_CACHE_TTL", 24*time.Hour),
		NotifyTimeout:      getDuration("NOTIFY_TIMEOUT", 3*time.Second),
		WorkerInterval:     getDuration("WORKER_INTERVAL", 5*time.Minute),
		PurgeRetentionDays: getInt("PURGE_RETENTION_DAYS", 30),
	}
}

// IsProduction reports whether secure cookies and quiet SQL logging should be used
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}
