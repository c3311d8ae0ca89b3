package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// AppConfig is the process-wide configuration, read once at start
type AppConfig struct {
	Port string

	DefaultClientSlug string
	DefaultClientName string

	SessionSecret string
	SessionTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBroker        string
	ContentEventsTopic string

	CMS CMSConfig
	S3  S3Config

	RevalidateURL    string
	RevalidateSecret string

	CORSOrigins []string
}

// CMSConfig points at the hosted structured-content service
type CMSConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	BaseURL    string
}

func (c CMSConfig) Enabled() bool {
	return c.ProjectID != "" || c.BaseURL != ""
}

// S3Config configures the upload bucket
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	PublicURL string

	// Static credentials; when empty the default AWS chain applies
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads AppConfig from the environment
func Load() *AppConfig {
	redisAddr := getEnv("REDIS_ADDR", "")
	if redisAddr == "" && os.Getenv("REDIS_HOST") != "" {
		redisAddr = os.Getenv("REDIS_HOST") + ":" + getEnv("REDIS_PORT", "6379")
	}

	return &AppConfig{
		Port:               getEnv("CMS_SERVICE_PORT", "8080"),
		DefaultClientSlug:  getEnv("DEFAULT_CLIENT_SLUG", "pmpk"),
		DefaultClientName:  getEnv("DEFAULT_CLIENT_NAME", "ПМПК"),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		RedisAddr:          redisAddr,
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		KafkaBroker:        getEnv("KAFKA_BROKER", ""),
		ContentEventsTopic: getEnv("CONTENT_EVENTS_TOPIC", "content-events"),
		CMS: CMSConfig{
			ProjectID:  getEnv("CMS_PROJECT_ID", ""),
			Dataset:    getEnv("CMS_DATASET", "production"),
			APIVersion: getEnv("CMS_API_VERSION", "2024-01-01"),
			Token:      getEnv("CMS_TOKEN", ""),
			BaseURL:    getEnv("CMS_BASE_URL", ""),
		},
		S3: S3Config{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),

			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		RevalidateURL:    getEnv("REVALIDATE_URL", ""),
		RevalidateSecret: getEnv("REVALIDATE_SECRET", ""),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
	}
}

// SetupLogging configures the global logrus logger from LOG_LEVEL and LOG_FORMAT
func SetupLogging() {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if getEnv("LOG_FORMAT", "text") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		logrus.Warnf("Invalid integer for %s: %q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logrus.Warnf("Invalid duration for %s: %q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
