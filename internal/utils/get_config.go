package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Server
	AppPort   string `yaml:"APP_PORT"`
	UploadDir string `yaml:"UPLOAD_DIR"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT for admin routes
	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`
	OperatorEmail    string `yaml:"OPERATOR_EMAIL"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`
	AWSS3Folder  string `yaml:"AWS_S3_FOLDER"`

	// OpenAI configuration
	OpenAIAPIKey  string `yaml:"OPENAI_API_KEY"`
	OpenAIModel   string `yaml:"OPENAI_MODEL"`
	OpenAIBaseURL string `yaml:"OPENAI_BASE_URL"`

	// Google Cloud Vision
	GoogleCredentials string `yaml:"GOOGLE_APPLICATION_CREDENTIALS"`

	// Pipeline
	FailedListPath   string `yaml:"FAILED_LIST_PATH"`
	ArchiveTimeout   string `yaml:"ARCHIVE_TIMEOUT"`
	AssessTimeout    string `yaml:"ASSESS_TIMEOUT"`
	RecognizeTimeout string `yaml:"RECOGNIZE_TIMEOUT"`
	DownloadTimeout  string `yaml:"DOWNLOAD_TIMEOUT"`
	DownloadRetries  string `yaml:"DOWNLOAD_RETRIES"`
	CacheTTL         string `yaml:"CACHE_TTL"`
}

var config Config

func LoadConfig() {
	LoadConfigFrom("config.yaml")
}

func LoadConfigFrom(path string) {
	file, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Error reading YAML file: %s", err)
		return
	}

	err = yaml.Unmarshal(file, &config)
	if err != nil {
		log.Warnf("Error parsing YAML file: %s", err)
		return
	}

	// Set environment variables for keys that SDKs read via os.Getenv
	setEnvIfPresent("JWT_SECRET", config.JWTSecret)
	setEnvIfPresent("OPENAI_API_KEY", config.OpenAIAPIKey)
	setEnvIfPresent("AWS_S3_BUCKET", config.AWSS3Bucket)
	setEnvIfPresent("AWS_S3_REGION", config.AWSS3Region)
	setEnvIfPresent("AWS_ACCESS_KEY", config.AWSAccessKey)
	setEnvIfPresent("AWS_SECRET_KEY", config.AWSSecretKey)
	setEnvIfPresent("GOOGLE_APPLICATION_CREDENTIALS", config.GoogleCredentials)
}

func setEnvIfPresent(key, value string) {
	if value != "" {
		os.Setenv(key, value)
	}
}

func GetConfig(key string) string {
	switch key {
	case "APP_PORT":
		return config.AppPort
	case "UPLOAD_DIR":
		return config.UploadDir
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "JWT_SECRET":
		if config.JWTSecret == "" {
			return os.Getenv("JWT_SECRET")
		}
		return config.JWTSecret
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "OPERATOR_EMAIL":
		return config.OperatorEmail
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "AWS_S3_FOLDER":
		return config.AWSS3Folder
	case "OPENAI_API_KEY":
		if config.OpenAIAPIKey == "" {
			return os.Getenv("OPENAI_API_KEY")
		}
		return config.OpenAIAPIKey
	case "OPENAI_MODEL":
		return config.OpenAIModel
	case "OPENAI_BASE_URL":
		return config.OpenAIBaseURL
	case "GOOGLE_APPLICATION_CREDENTIALS":
		return config.GoogleCredentials
	case "FAILED_LIST_PATH":
		return config.FailedListPath
	case "ARCHIVE_TIMEOUT":
		return config.ArchiveTimeout
	case "ASSESS_TIMEOUT":
		return config.AssessTimeout
	case "RECOGNIZE_TIMEOUT":
		return config.RecognizeTimeout
	case "DOWNLOAD_TIMEOUT":
		return config.DownloadTimeout
	case "DOWNLOAD_RETRIES":
		return config.DownloadRetries
	case "CACHE_TTL":
		return config.CacheTTL
	default:
		return ""
	}
}

// GetConfigOr returns the configured value or def when it is unset.
func GetConfigOr(key, def string) string {
	if v := GetConfig(key); v != "" {
		return v
	}
	return def
}

// GetDuration parses a duration such as "30s"; unset or invalid values yield def.
func GetDuration(key string, def time.Duration) time.Duration {
	raw := GetConfig(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warnw("invalid duration in config, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

// GetInt parses a positive integer; unset or invalid values yield def.
func GetInt(key string, def int) int {
	raw := GetConfig(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Warnw("invalid integer in config, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}
