package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// An empty Host selects the in-memory repositories (development only).
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a PostgreSQL connection is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// MinIOConfig holds object storage settings for MinIO.
// An empty Endpoint selects the in-memory object store.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an S3-compatible endpoint is configured.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// EncryptionConfig holds the key ring used to encrypt prepared reports at rest.
// Keys maps key id to secret; ActiveKeyID names the key used for new ciphertexts.
type EncryptionConfig struct {
	Keys        map[string]string
	ActiveKeyID string
}

// RendererConfig holds template and HTML-to-PDF service settings.
type RendererConfig struct {
	TemplatesDir  string
	PDFServiceURL string
	Timeout       time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	LogLevel   string
	TimeZone   string
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Encryption EncryptionConfig
	Renderer   RendererConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		TimeZone: getEnv("TZ_LOCATION", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Encryption: EncryptionConfig{
			Keys:        getEnvKeys("ENCRYPTION_KEYS"),
			ActiveKeyID: getEnv("ENCRYPTION_ACTIVE_KEY", ""),
		},
		Renderer: RendererConfig{
			TemplatesDir:  getEnv("TEMPLATES_DIR", "templates"),
			PDFServiceURL: getEnv("PDF_SERVICE_URL", ""),
			Timeout:       getEnvDuration("PDF_SERVICE_TIMEOUT", 30*time.Second),
		},
	}
}

// Validate checks the settings the server cannot start without.
func (c *AppConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.By(isPort)),
	); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	if err := c.Encryption.Validate(); err != nil {
		return fmt.Errorf("encryption: %w", err)
	}
	if err := c.Renderer.Validate(); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	if c.MinIO.Enabled() {
		if err := c.MinIO.Validate(); err != nil {
			return fmt.Errorf("minio: %w", err)
		}
	}
	return nil
}

// Validate validates the encryption configuration.
func (c *EncryptionConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Keys, validation.Required),
		validation.Field(&c.ActiveKeyID, validation.Required),
	); err != nil {
		return err
	}
	if _, ok := c.Keys[c.ActiveKeyID]; !ok {
		return fmt.Errorf("active key %q is not in the key ring", c.ActiveKeyID)
	}
	return nil
}

// Validate validates the renderer configuration.
func (c *RendererConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TemplatesDir, validation.Required),
		validation.Field(&c.PDFServiceURL, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// Validate validates the object storage configuration.
func (c *MinIOConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AccessKey, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
	)
}

func isPort(value any) error {
	s, _ := value.(string)
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("must be a port number")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

// getEnvKeys parses "id1:secret1,id2:secret2". Malformed pairs are skipped.
func getEnvKeys(key string) map[string]string {
	keys := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		id, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || id == "" || secret == "" {
			continue
		}
		keys[id] = secret
	}
	return keys
}
