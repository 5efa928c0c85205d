package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	HTTPPort       string          `json:"http_port"`
	AllowedOrigins []string        `json:"allowed_origins"`
	LogLevel       string          `json:"log_level"`
	LogFormat      string          `json:"log_format"` // console or json
	Auth           AuthConfig      `json:"auth"`
	Database       DBConfig        `json:"database"`
	Secrets        SecretsConfig   `json:"secrets"`
	RateLimit      RateLimitConfig `json:"rate_limit"`
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	Enabled      bool   `json:"enabled"`        // Enable bearer token verification
	TenantID     string `json:"tenant_id"`      // Directory (tenant) ID; resolved from the secret store when empty
	ClientID     string `json:"client_id"`      // Application (client) ID; resolved from the secret store when empty
	IssuerURL    string `json:"issuer_url"`     // Overrides the issuer derived from TenantID
	JWKSCacheTTL int    `json:"jwks_cache_ttl"` // JWKS cache duration in seconds (default: 3600)
}

// Issuer returns the expected token issuer. An explicit IssuerURL wins over
// the Entra ID issuer derived from the tenant.
func (a AuthConfig) Issuer() string {
	if a.IssuerURL != "" {
		return strings.TrimSuffix(a.IssuerURL, "/")
	}
	if a.TenantID == "" {
		return ""
	}
	return "https://login.microsoftonline.com/" + a.TenantID + "/v2.0"
}

// AcceptedIssuers lists every token issuer that is trusted. A tenant-derived
// configuration accepts Entra ID v2 tokens and v1 tokens (iss
// https://sts.windows.net/<tenant>/, aud api://<client>); both are signed by
// the keys published under the v2 issuer.
func (a AuthConfig) AcceptedIssuers() []string {
	issuer := a.Issuer()
	if issuer == "" {
		return nil
	}
	if a.IssuerURL != "" {
		return []string{issuer}
	}
	return []string{issuer, "https://sts.windows.net/" + a.TenantID + "/"}
}

// DBConfig holds database configuration
type DBConfig struct {
	Enabled         bool          `json:"enabled"`
	Driver          string        `json:"driver"`         // sqlserver, postgres, pgx or sqlite3
	EnvFile         string        `json:"env_file"`       // local developer credentials; its presence selects local mode
	NameSecret      string        `json:"name_secret"`    // remote secret holding the database name
	MaxOpenConns    int           `json:"max_open_conns"` // pool size
	MaxIdleConns    int           `json:"max_idle_conns"` // idle connections kept
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	AcquireTimeout  time.Duration `json:"acquire_timeout"` // wait for a free pooled connection
	ConnectTimeout  time.Duration `json:"connect_timeout"` // startup connectivity probe
	AutoMigrate     bool          `json:"auto_migrate"`
}

// SecretsConfig holds the remote secret store configuration
type SecretsConfig struct {
	Provider   string        `json:"provider"`    // azure or gcp
	VaultURL   string        `json:"vault_url"`   // Azure Key Vault URL
	GCPProject string        `json:"gcp_project"` // Google Cloud project holding the secrets
	Timeout    time.Duration `json:"timeout"`     // per-secret lookup timeout
}

// RateLimitConfig configures the token bucket in front of the API
type RateLimitConfig struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8000"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "https://localhost:5173"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		Auth: AuthConfig{
			Enabled:      getEnvAsBool("AUTH_ENABLED", true),
			TenantID:     getEnv("AUTH_TENANT_ID", ""),
			ClientID:     getEnv("AUTH_CLIENT_ID", ""),
			IssuerURL:    getEnv("AUTH_ISSUER_URL", ""),
			JWKSCacheTTL: getEnvAsInt("AUTH_JWKS_CACHE_TTL", 3600),
		},
		Database: DBConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", true),
			Driver:          getEnv("DB_DRIVER", "sqlserver"),
			EnvFile:         getEnv("DB_ENV_FILE", ".env"),
			NameSecret:      getEnv("DB_NAME_SECRET", "DB-NAME"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AcquireTimeout:  getEnvAsDuration("DB_ACQUIRE_TIMEOUT", 5*time.Second),
			ConnectTimeout:  getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Secrets: SecretsConfig{
			Provider:   getEnv("SECRETS_PROVIDER", "azure"),
			VaultURL:   getEnv("KEY_VAULT_URL", ""),
			GCPProject: getEnv("GCP_PROJECT", ""),
			Timeout:    getEnvAsDuration("SECRETS_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 25),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 50),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("250ms", "5s") or a plain number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	out := make([]string, 0)
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
