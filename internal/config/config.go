package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string

	// Server
	ApiPort string

	// Payment engine
	InvoiceNumberPrefix string // e.g. "INV"
	BastNumberPrefix    string // e.g. "BAST"

	// Deadline reminders
	DeadlineWarningDays int
	DeadlineUrgentDays  int
	FinanceEmail        string
	ReminderInterval    time.Duration

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	FileBaseS3URL      string
	ImageMaxDimension  int
	ImageMaxSizeMB     int

	// App Defaults
	AppName string
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Load basic string values
	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "moeyproject")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.InvoiceNumberPrefix = getEnv("INVOICE_NUMBER_PREFIX", "INV")
	cfg.BastNumberPrefix = getEnv("BAST_NUMBER_PREFIX", "BAST")
	cfg.FinanceEmail = getEnv("FINANCE_EMAIL", "")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@moeyproject.example.com")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.FileBaseS3URL = getEnv("FILE_BASE_S3_URL", "")
	cfg.AppName = getEnv("APP_NAME", "MoeyProject")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.DeadlineWarningDays, err = strconv.Atoi(getEnv("DEADLINE_WARNING_DAYS", "14"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEADLINE_WARNING_DAYS: %w", err)
	}

	cfg.DeadlineUrgentDays, err = strconv.Atoi(getEnv("DEADLINE_URGENT_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEADLINE_URGENT_DAYS: %w", err)
	}

	reminderIntervalHours, err := strconv.ParseInt(getEnv("REMINDER_INTERVAL_HOURS", "24"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_INTERVAL_HOURS: %w", err)
	}
	cfg.ReminderInterval = time.Duration(reminderIntervalHours) * time.Hour

	cfg.ImageMaxDimension, err = strconv.Atoi(getEnv("IMAGE_MAX_DIMENSION", "2048"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_DIMENSION: %w", err)
	}

	cfg.ImageMaxSizeMB, err = strconv.Atoi(getEnv("IMAGE_MAX_SIZE_MB", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MAX_SIZE_MB: %w", err)
	}

	return cfg, nil
}
