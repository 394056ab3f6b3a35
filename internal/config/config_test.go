package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("ENCRYPTION_KEYS", "k1:secret-one, k2:secret-two")
	t.Setenv("ENCRYPTION_ACTIVE_KEY", "k2")
	t.Setenv("PDF_SERVICE_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, map[string]string{"k1": "secret-one", "k2": "secret-two"}, cfg.Encryption.Keys)
	assert.Equal(t, "k2", cfg.Encryption.ActiveKeyID)
	assert.Equal(t, 5*time.Second, cfg.Renderer.Timeout)
	assert.True(t, cfg.Database.Enabled())
}

func validConfig() *AppConfig {
	return &AppConfig{
		Port:     "8080",
		TimeZone: "UTC",
		Encryption: EncryptionConfig{
			Keys:        map[string]string{"k1": "secret"},
			ActiveKeyID: "k1",
		},
		Renderer: RendererConfig{
			TemplatesDir:  "templates",
			PDFServiceURL: "http://pdf:5001",
			Timeout:       10 * time.Second,
		},
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *AppConfig) {}},
		{name: "bad port", mutate: func(c *AppConfig) { c.Port = "http" }, wantErr: true},
		{name: "port out of range", mutate: func(c *AppConfig) { c.Port = "70000" }, wantErr: true},
		{name: "bad time zone", mutate: func(c *AppConfig) { c.TimeZone = "Mars/Olympus" }, wantErr: true},
		{name: "no keys", mutate: func(c *AppConfig) { c.Encryption.Keys = nil }, wantErr: true},
		{name: "active key missing from ring", mutate: func(c *AppConfig) { c.Encryption.ActiveKeyID = "k9" }, wantErr: true},
		{name: "no pdf service", mutate: func(c *AppConfig) { c.Renderer.PDFServiceURL = "" }, wantErr: true},
		{name: "timeout too short", mutate: func(c *AppConfig) { c.Renderer.Timeout = time.Millisecond }, wantErr: true},
		{name: "minio without bucket", mutate: func(c *AppConfig) {
			c.MinIO = MinIOConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"}
		}, wantErr: true},
		{name: "minio complete", mutate: func(c *AppConfig) {
			c.MinIO = MinIOConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s", Bucket: "reports"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvKeys(t *testing.T) {
	key := "TEST_KEYS_VAR"

	t.Setenv(key, "a:1,broken,:x,b:,c:3")
	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, getEnvKeys(key))

	t.Setenv(key, "")
	assert.Empty(t, getEnvKeys(key))
}
