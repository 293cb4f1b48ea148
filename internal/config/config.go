// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.weaver/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: Generation model, embedder model, temperature, max tokens
//   - Storage: PostgreSQL connection and the data directory root (see storage.go)
//   - Ingest: Connector tokens and chunking parameters
//   - Server: Bind address, CORS, rate limiting
//
// Security: sensitive fields (tokens, passwords, API keys) are masked in MarshalJSON().
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidChunking indicates the chunk size/overlap combination is invalid.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidServerPort indicates the HTTP server port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingConnectorToken indicates a connector token required for an
	// ingest operation is not set.
	ErrMissingConnectorToken = errors.New("missing connector token")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// text-embedding-004 outputs 768 dimensions, matching the pgvector
	// schema; see knowledge.VectorDimension.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultModelName is the default Gemini generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultChunkSize is the chunk budget in tokens.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the overlap between consecutive chunks in tokens.
	DefaultChunkOverlap = 50

	// DefaultEmbedBatchSize is how many chunks are embedded per API call.
	DefaultEmbedBatchSize = 50
)

// ProviderGoogleAI is the Genkit provider prefix for Gemini models.
const ProviderGoogleAI = "googleai"

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI model configuration
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// HTTP server configuration
	ServerHost  string   `mapstructure:"server_host" json:"server_host"`
	ServerPort  int      `mapstructure:"server_port" json:"server_port"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP token bucket burst (0 = default 60)

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// DataDir is the root directory for per-user raw and upload files.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// Connector tokens
	GitHubToken   string `mapstructure:"github_token" json:"github_token"`       // SENSITIVE: masked in MarshalJSON
	SlackBotToken string `mapstructure:"slack_bot_token" json:"slack_bot_token"` // SENSITIVE: masked in MarshalJSON

	// Chunking configuration
	ChunkSize      int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	EmbedBatchSize int `mapstructure:"embed_batch_size" json:"embed_batch_size"`

	// Observability. Empty OTLPEndpoint disables trace export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`

	// Dev relaxes transport hardening: HTTP session cookies, no HSTS.
	Dev bool `mapstructure:"dev" json:"dev"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.weaver/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".weaver")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.1)
	viper.SetDefault("max_tokens", 1000)

	// Server defaults
	viper.SetDefault("server_host", "0.0.0.0")
	viper.SetDefault("server_port", 8000)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "weaver")
	viper.SetDefault("postgres_password", "weaver_dev_password")
	viper.SetDefault("postgres_db_name", "weaver")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Data directory
	viper.SetDefault("data_dir", "./data")

	// Chunking defaults
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("embed_batch_size", DefaultEmbedBatchSize)

	// Observability
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("dev", false)
}

// bindEnvVariables binds environment variables explicitly.
// Connector and AI secrets keep their historical bare names so existing
// deployments keep working; everything else uses the WEAVER_ prefix.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %v: %v", key, envVars, err))
		}
	}

	// Connector secrets (historical bare names)
	mustBind("github_token", "GITHUB_TOKEN")
	mustBind("slack_bot_token", "SLACK_BOT_TOKEN")

	// Server binding (historical bare names)
	mustBind("server_host", "API_HOST", "WEAVER_HOST")
	mustBind("server_port", "API_PORT", "WEAVER_PORT")

	// Chunking (historical bare names)
	mustBind("chunk_size", "CHUNK_SIZE")
	mustBind("chunk_overlap", "CHUNK_OVERLAP")

	// Operational overrides
	mustBind("model_name", "WEAVER_MODEL_NAME")
	mustBind("embedder_model", "WEAVER_EMBEDDER_MODEL")
	mustBind("data_dir", "WEAVER_DATA_DIR")
	mustBind("cors_origins", "WEAVER_CORS_ORIGINS")
	mustBind("trust_proxy", "WEAVER_TRUST_PROXY")
	mustBind("otlp_endpoint", "WEAVER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("dev", "WEAVER_DEV")

	// NOTE: GOOGLE_API_KEY / GEMINI_API_KEY are read directly by Genkit's
	// Google AI plugin, not via Viper. Validation only checks presence for
	// commands that reach Gemini; see RequireAPIKey.
}

// RequireAPIKey verifies a Gemini API key is present in the environment.
// The key itself is consumed by the Genkit Google AI plugin.
func RequireAPIKey() error {
	if os.Getenv("GOOGLE_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: set GOOGLE_API_KEY or GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real
// secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer secrets show the
// first and last 2 characters for debug utility.
//
// This defends against accidental logging of real secrets. It is NOT
// cryptographically secure; if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - GitHubToken
//   - SlackBotToken
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.GitHubToken = maskSecret(a.GitHubToken)
	a.SlackBotToken = maskSecret(a.SlackBotToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified generation model name for Genkit.
// Example: "googleai/gemini-2.5-flash".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// FullEmbedderName returns the provider-qualified embedder name for Genkit.
func (c *Config) FullEmbedderName() string {
	if strings.Contains(c.EmbedderModel, "/") {
		return c.EmbedderModel
	}
	return ProviderGoogleAI + "/" + c.EmbedderModel
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
