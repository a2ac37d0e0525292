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
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Backend  BackendConfig
	Analyze  AnalyzeConfig
	Explain  ExplainConfig
	CORS     CORSConfig
	Alerts   AlertsConfig
	Operator OperatorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
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

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`
	AccessExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer       string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings for archived media.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// BackendProviderConfig holds settings for a single model backend provider.
type BackendProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// BackendConfig holds model backend settings with multi-provider fallback.
type BackendConfig struct {
	Primary   BackendProviderConfig `mapstructure:"primary"`
	Secondary BackendProviderConfig `mapstructure:"secondary"`
	Tertiary  BackendProviderConfig `mapstructure:"tertiary"`
}

// SecondaryConfig returns the secondary backend config, or nil if not configured.
func (b *BackendConfig) SecondaryConfig() *BackendProviderConfig {
	if b.Secondary.Provider != "" {
		return &b.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary backend config, or nil if not configured.
func (b *BackendConfig) TertiaryConfig() *BackendProviderConfig {
	if b.Tertiary.Provider != "" {
		return &b.Tertiary
	}
	return nil
}

// AnalyzeConfig bounds analysis requests and the per-unit retry budget.
type AnalyzeConfig struct {
	DeadlineSecs  int   `mapstructure:"deadline_secs"`
	MaxAttempts   int   `mapstructure:"max_attempts"`
	MaxUnits      int   `mapstructure:"max_units"`
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
	Concurrency   int   `mapstructure:"concurrency"`
	MaxTokens     int   `mapstructure:"max_tokens"`
}

// ExplainConfig bounds the grounded explanation call.
type ExplainConfig struct {
	DeadlineSecs int `mapstructure:"deadline_secs"`
	MaxTokens    int `mapstructure:"max_tokens"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AlertsConfig holds risk alert delivery settings.
type AlertsConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	ToAddress   string `mapstructure:"to_address"`
}

// OperatorConfig holds the single operator credential used for API login.
type OperatorConfig struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// Load reads configuration from environment variables with the VISARA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VISARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "visara")
	v.SetDefault("db.password", "visara_secret")
	v.SetDefault("db.name", "visara_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "12h")
	v.SetDefault("jwt.issuer", "visara")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "visara-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Backend defaults: mock keeps the service bootable without credentials.
	v.SetDefault("backend.primary.provider", "mock")
	v.SetDefault("backend.primary.api_key", "")
	v.SetDefault("backend.primary.default_model", "")
	v.SetDefault("backend.primary.timeout_secs", 120)
	v.SetDefault("backend.secondary.provider", "")
	v.SetDefault("backend.secondary.api_key", "")
	v.SetDefault("backend.secondary.default_model", "")
	v.SetDefault("backend.secondary.timeout_secs", 120)
	v.SetDefault("backend.tertiary.provider", "")
	v.SetDefault("backend.tertiary.api_key", "")
	v.SetDefault("backend.tertiary.default_model", "")
	v.SetDefault("backend.tertiary.timeout_secs", 120)

	// Analysis defaults
	v.SetDefault("analyze.deadline_secs", 90)
	v.SetDefault("analyze.max_attempts", 3)
	v.SetDefault("analyze.max_units", 10)
	v.SetDefault("analyze.max_file_size_mb", 20)
	v.SetDefault("analyze.concurrency", 1)
	v.SetDefault("analyze.max_tokens", 4096)

	// Explainer defaults
	v.SetDefault("explain.deadline_secs", 60)
	v.SetDefault("explain.max_tokens", 600)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Alert defaults
	v.SetDefault("alerts.provider", "noop")
	v.SetDefault("alerts.region", "us-east-1")
	v.SetDefault("alerts.from_address", "noreply@visara.local")
	v.SetDefault("alerts.to_address", "")

	// Operator defaults (bcrypt hash of "visara-dev"; override in production)
	v.SetDefault("operator.email", "operator@visara.local")
	v.SetDefault("operator.password_hash", "$2a$10$0IhIl1xkcicVOAHIhsBkHeZL0z3pLLvMPOSnbRay5Y9dUxsoruUvG")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                     "VISARA_SERVER_PORT",
		"server.read_timeout":             "VISARA_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "VISARA_SERVER_WRITE_TIMEOUT",
		"server.environment":              "VISARA_SERVER_ENVIRONMENT",
		"db.host":                         "VISARA_DB_HOST",
		"db.port":                         "VISARA_DB_PORT",
		"db.user":                         "VISARA_DB_USER",
		"db.password":                     "VISARA_DB_PASSWORD",
		"db.name":                         "VISARA_DB_NAME",
		"db.sslmode":                      "VISARA_DB_SSLMODE",
		"db.max_open":                     "VISARA_DB_MAX_OPEN",
		"db.max_idle":                     "VISARA_DB_MAX_IDLE",
		"jwt.secret":                      "VISARA_JWT_SECRET",
		"jwt.access_expiry":               "VISARA_JWT_ACCESS_EXPIRY",
		"jwt.issuer":                      "VISARA_JWT_ISSUER",
		"s3.region":                       "VISARA_S3_REGION",
		"s3.bucket":                       "VISARA_S3_BUCKET",
		"s3.endpoint":                     "VISARA_S3_ENDPOINT",
		"s3.access_key":                   "VISARA_S3_ACCESS_KEY",
		"s3.secret_key":                   "VISARA_S3_SECRET_KEY",
		"s3.presign_expiry":               "VISARA_S3_PRESIGN_EXPIRY",
		"backend.primary.provider":        "VISARA_BACKEND_PRIMARY_PROVIDER",
		"backend.primary.api_key":         "VISARA_BACKEND_PRIMARY_API_KEY",
		"backend.primary.default_model":   "VISARA_BACKEND_PRIMARY_DEFAULT_MODEL",
		"backend.primary.timeout_secs":    "VISARA_BACKEND_PRIMARY_TIMEOUT_SECS",
		"backend.secondary.provider":      "VISARA_BACKEND_SECONDARY_PROVIDER",
		"backend.secondary.api_key":       "VISARA_BACKEND_SECONDARY_API_KEY",
		"backend.secondary.default_model": "VISARA_BACKEND_SECONDARY_DEFAULT_MODEL",
		"backend.secondary.timeout_secs":  "VISARA_BACKEND_SECONDARY_TIMEOUT_SECS",
		"backend.tertiary.provider":       "VISARA_BACKEND_TERTIARY_PROVIDER",
		"backend.tertiary.api_key":        "VISARA_BACKEND_TERTIARY_API_KEY",
		"backend.tertiary.default_model":  "VISARA_BACKEND_TERTIARY_DEFAULT_MODEL",
		"backend.tertiary.timeout_secs":   "VISARA_BACKEND_TERTIARY_TIMEOUT_SECS",
		"analyze.deadline_secs":           "VISARA_ANALYZE_DEADLINE_SECS",
		"analyze.max_attempts":            "VISARA_ANALYZE_MAX_ATTEMPTS",
		"analyze.max_units":               "VISARA_ANALYZE_MAX_UNITS",
		"analyze.max_file_size_mb":        "VISARA_ANALYZE_MAX_FILE_SIZE_MB",
		"analyze.concurrency":             "VISARA_ANALYZE_CONCURRENCY",
		"analyze.max_tokens":              "VISARA_ANALYZE_MAX_TOKENS",
		"explain.deadline_secs":           "VISARA_EXPLAIN_DEADLINE_SECS",
		"explain.max_tokens":              "VISARA_EXPLAIN_MAX_TOKENS",
		"cors.allowed_origins":            "VISARA_CORS_ALLOWED_ORIGINS",
		"alerts.provider":                 "VISARA_ALERTS_PROVIDER",
		"alerts.region":                   "VISARA_ALERTS_REGION",
		"alerts.from_address":             "VISARA_ALERTS_FROM_ADDRESS",
		"alerts.to_address":               "VISARA_ALERTS_TO_ADDRESS",
		"operator.email":                  "VISARA_OPERATOR_EMAIL",
		"operator.password_hash":          "VISARA_OPERATOR_PASSWORD_HASH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if VISARA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("VISARA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:       v.GetString("jwt.secret"),
		AccessExpiry: v.GetDuration("jwt.access_expiry"),
		Issuer:       v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Backend = BackendConfig{
		Primary: BackendProviderConfig{
			Provider:     v.GetString("backend.primary.provider"),
			APIKey:       v.GetString("backend.primary.api_key"),
			DefaultModel: v.GetString("backend.primary.default_model"),
			TimeoutSecs:  v.GetInt("backend.primary.timeout_secs"),
		},
		Secondary: BackendProviderConfig{
			Provider:     v.GetString("backend.secondary.provider"),
			APIKey:       v.GetString("backend.secondary.api_key"),
			DefaultModel: v.GetString("backend.secondary.default_model"),
			TimeoutSecs:  v.GetInt("backend.secondary.timeout_secs"),
		},
		Tertiary: BackendProviderConfig{
			Provider:     v.GetString("backend.tertiary.provider"),
			APIKey:       v.GetString("backend.tertiary.api_key"),
			DefaultModel: v.GetString("backend.tertiary.default_model"),
			TimeoutSecs:  v.GetInt("backend.tertiary.timeout_secs"),
		},
	}
	cfg.Analyze = AnalyzeConfig{
		DeadlineSecs:  v.GetInt("analyze.deadline_secs"),
		MaxAttempts:   v.GetInt("analyze.max_attempts"),
		MaxUnits:      v.GetInt("analyze.max_units"),
		MaxFileSizeMB: v.GetInt64("analyze.max_file_size_mb"),
		Concurrency:   v.GetInt("analyze.concurrency"),
		MaxTokens:     v.GetInt("analyze.max_tokens"),
	}
	cfg.Explain = ExplainConfig{
		DeadlineSecs: v.GetInt("explain.deadline_secs"),
		MaxTokens:    v.GetInt("explain.max_tokens"),
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

	cfg.Alerts = AlertsConfig{
		Provider:    v.GetString("alerts.provider"),
		Region:      v.GetString("alerts.region"),
		FromAddress: v.GetString("alerts.from_address"),
		ToAddress:   v.GetString("alerts.to_address"),
	}
	cfg.Operator = OperatorConfig{
		Email:        v.GetString("operator.email"),
		PasswordHash: v.GetString("operator.password_hash"),
	}

	return cfg, nil
}
