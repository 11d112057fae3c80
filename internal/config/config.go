package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
// Both servers, the worker and attendancectl read from the same struct.
type App struct {
	Env string

	AttendancePort string
	CardVaultPort  string

	AttendanceDBDriver string
	AttendanceDBDSN    string
	CardsDBDriver      string
	CardsDBDSN         string

	SessionSecret string
	SessionSecure bool
	SessionMaxAge time.Duration

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration

	RedisAddr        string
	QueueBackend     string
	RateLimitBackend string
	RateLimitPerMin  int
	CORSOrigins      []string

	OCRServiceURL string
	OCRTimeout    time.Duration
	MaxUploadMB   int

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}

	return App{
		Env:                 getEnv("APP_ENV", "dev"),
		AttendancePort:      getEnv("ATTENDANCE_HTTP_PORT", "8081"),
		CardVaultPort:       getEnv("CARDVAULT_HTTP_PORT", "8082"),
		AttendanceDBDriver:  getEnv("ATTENDANCE_DB_DRIVER", "sqlite3"),
		AttendanceDBDSN:     getEnv("ATTENDANCE_DB_DSN", "./class-attendance.db"),
		CardsDBDriver:       getEnv("CARDS_DB_DRIVER", "sqlite3"),
		CardsDBDSN:          getEnv("CARDS_DB_DSN", "./cards.db"),
		SessionSecret:       getEnv("SESSION_SECRET", "dev-session-secret-change"),
		SessionSecure:       boolEnv("SESSION_SECURE", false),
		SessionMaxAge:       durationEnv("SESSION_MAX_AGE", 12*time.Hour),
		JWTIssuer:           getEnv("JWT_ISSUER", "attendvault"),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:           durationEnv("ACCESS_TTL", 15*time.Minute),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		QueueBackend:        getEnv("QUEUE_BACKEND", "memory"),
		RateLimitBackend:    getEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitPerMin:     intEnv("RATE_LIMIT_PER_MIN", 60),
		CORSOrigins:         listEnv("CORS_ALLOWED_ORIGINS"),
		OCRServiceURL:       getEnv("OCR_SERVICE_URL", "http://localhost:8000"),
		OCRTimeout:          durationEnv("OCR_TIMEOUT", 30*time.Second),
		MaxUploadMB:         intEnv("MAX_UPLOAD_MB", 10),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "cardvault/cards"),
	}
}

// Production reports whether the app runs with production settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// ArchiveEnabled reports whether card images should be archived to Cloudinary.
func (a App) ArchiveEnabled() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

// listEnv splits a comma separated variable, dropping empty entries.
func listEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
