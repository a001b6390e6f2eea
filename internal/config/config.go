package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	BaseURL   string
	JWTSecret string
	// DefaultRegion is the ISO country used to interpret national phone numbers
	DefaultRegion string
	Database      DatabaseConfig
	Storage       StorageConfig
	AI            AIConfig
	Mail          MailConfig
	Log           LogConfig
}

// DatabaseConfig holds database configuration. With Host=localhost and no
// password the server runs its own embedded PostgreSQL.
type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	LogSQL       bool
	EmbeddedDir  string
	EmbeddedPort int
}

// StorageConfig selects and configures the file storage backend
type StorageConfig struct {
	Driver        string // local, s3, gcs
	Bucket        string
	Region        string
	Endpoint      string // custom S3 endpoint (MinIO, LocalStack)
	Prefix        string
	LocalDir      string
	PublicBaseURL string
}

// AIConfig holds the photo analysis model settings
type AIConfig struct {
	GeminiAPIKey string
	Model        string
}

// MailConfig holds SMTP settings for outbound reports
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	port := getEnv("PORT", "3001")
	mailPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	embeddedPort, err := strconv.Atoi(getEnv("PG_EMBEDDED_PORT", "5433"))
	if err != nil {
		return nil, fmt.Errorf("invalid PG_EMBEDDED_PORT: %w", err)
	}

	return &Config{
		NodeEnv:       getEnv("NODE_ENV", "development"),
		Port:          port,
		BaseURL:       getEnv("BASE_URL", "http://localhost:"+port),
		JWTSecret:     jwtSecret,
		DefaultRegion: getEnv("DEFAULT_PHONE_REGION", "FR"),
		Database: DatabaseConfig{
			Host:         getEnv("PG_HOST", "localhost"),
			Port:         getEnv("PG_PORT", "5432"),
			Username:     getEnv("PG_USERNAME", "postgres"),
			Password:     os.Getenv("PG_PASSWORD"),
			Database:     getEnv("PG_DATABASE", "csps"),
			SSLMode:      getEnv("PG_SSLMODE", "disable"),
			LogSQL:       getEnv("DB_LOG_SQL", "false") == "true",
			EmbeddedDir:  getEnv("PG_EMBEDDED_DIR", "./db_data"),
			EmbeddedPort: embeddedPort,
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "local"),
			Bucket:        os.Getenv("STORAGE_BUCKET"),
			Region:        getEnv("AWS_REGION", "eu-west-3"),
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			Prefix:        os.Getenv("STORAGE_PREFIX"),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "./uploads"),
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_URL"),
		},
		AI: AIConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     mailPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "rapports@csps.local"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
