package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	S3        S3Config
	Log       LogConfig
	Extractor ExtractorConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds invoice store settings. Driver selects the repository
// backend: "postgres" (default) or "memory" for local development.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds document store settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds settings for a single extraction model provider.
type ProviderConfig struct {
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
}

// ExtractorConfig holds extraction pipeline settings shared across
// providers, plus per-provider credentials.
type ExtractorConfig struct {
	DefaultProvider string         `mapstructure:"default_provider"`
	MaxRetries      int            `mapstructure:"max_retries"`
	TimeoutSecs     int            `mapstructure:"timeout_secs"`
	BackoffBaseMS   int            `mapstructure:"backoff_base_ms"`
	CacheEnabled    bool           `mapstructure:"cache_enabled"`
	Gemini          ProviderConfig `mapstructure:"gemini"`
	Claude          ProviderConfig `mapstructure:"claude"`
}

// Timeout returns the per-call extraction timeout.
func (e *ExtractorConfig) Timeout() time.Duration {
	if e.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(e.TimeoutSecs) * time.Second
}

// BackoffBase returns the first retry delay for the pipeline backoff.
func (e *ExtractorConfig) BackoffBase() time.Duration {
	if e.BackoffBaseMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(e.BackoffBaseMS) * time.Millisecond
}

// Load reads configuration from environment variables with the INVOX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invox")
	v.SetDefault("db.password", "invox_secret")
	v.SetDefault("db.name", "invox_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "invox-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Extractor defaults
	v.SetDefault("extractor.default_provider", "gemini")
	v.SetDefault("extractor.max_retries", 2)
	v.SetDefault("extractor.timeout_secs", 120)
	v.SetDefault("extractor.backoff_base_ms", 500)
	v.SetDefault("extractor.cache_enabled", true)
	v.SetDefault("extractor.gemini.api_key", "")
	v.SetDefault("extractor.gemini.default_model", "gemini-2.0-flash")
	v.SetDefault("extractor.claude.api_key", "")
	v.SetDefault("extractor.claude.default_model", "claude-sonnet-4-20250514")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                     "INVOX_SERVER_PORT",
		"server.read_timeout":             "INVOX_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "INVOX_SERVER_WRITE_TIMEOUT",
		"server.environment":              "INVOX_SERVER_ENVIRONMENT",
		"db.driver":                       "INVOX_DB_DRIVER",
		"db.host":                         "INVOX_DB_HOST",
		"db.port":                         "INVOX_DB_PORT",
		"db.user":                         "INVOX_DB_USER",
		"db.password":                     "INVOX_DB_PASSWORD",
		"db.name":                         "INVOX_DB_NAME",
		"db.sslmode":                      "INVOX_DB_SSLMODE",
		"db.max_open":                     "INVOX_DB_MAX_OPEN",
		"db.max_idle":                     "INVOX_DB_MAX_IDLE",
		"s3.region":                       "INVOX_S3_REGION",
		"s3.bucket":                       "INVOX_S3_BUCKET",
		"s3.endpoint":                     "INVOX_S3_ENDPOINT",
		"s3.access_key":                   "INVOX_S3_ACCESS_KEY",
		"s3.secret_key":                   "INVOX_S3_SECRET_KEY",
		"s3.max_file_size_mb":             "INVOX_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":               "INVOX_S3_PRESIGN_EXPIRY",
		"log.level":                       "INVOX_LOG_LEVEL",
		"log.format":                      "INVOX_LOG_FORMAT",
		"cors.allowed_origins":            "INVOX_CORS_ALLOWED_ORIGINS",
		"extractor.default_provider":      "INVOX_EXTRACTOR_DEFAULT_PROVIDER",
		"extractor.max_retries":           "INVOX_EXTRACTOR_MAX_RETRIES",
		"extractor.timeout_secs":          "INVOX_EXTRACTOR_TIMEOUT_SECS",
		"extractor.backoff_base_ms":       "INVOX_EXTRACTOR_BACKOFF_BASE_MS",
		"extractor.cache_enabled":         "INVOX_EXTRACTOR_CACHE_ENABLED",
		"extractor.gemini.api_key":        "INVOX_EXTRACTOR_GEMINI_API_KEY",
		"extractor.gemini.default_model":  "INVOX_EXTRACTOR_GEMINI_DEFAULT_MODEL",
		"extractor.claude.api_key":        "INVOX_EXTRACTOR_CLAUDE_API_KEY",
		"extractor.claude.default_model":  "INVOX_EXTRACTOR_CLAUDE_DEFAULT_MODEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if INVOX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVOX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Driver:   v.GetString("db.driver"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Extractor = ExtractorConfig{
		DefaultProvider: v.GetString("extractor.default_provider"),
		MaxRetries:      v.GetInt("extractor.max_retries"),
		TimeoutSecs:     v.GetInt("extractor.timeout_secs"),
		BackoffBaseMS:   v.GetInt("extractor.backoff_base_ms"),
		CacheEnabled:    v.GetBool("extractor.cache_enabled"),
		Gemini: ProviderConfig{
			APIKey:       v.GetString("extractor.gemini.api_key"),
			DefaultModel: v.GetString("extractor.gemini.default_model"),
		},
		Claude: ProviderConfig{
			APIKey:       v.GetString("extractor.claude.api_key"),
			DefaultModel: v.GetString("extractor.claude.default_model"),
		},
	}

	return cfg, nil
}
