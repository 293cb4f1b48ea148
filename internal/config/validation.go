package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// The Gemini API key is deliberately not checked here: commands that never
// reach Gemini (migrate, version) must work without it. Commands that do
// call RequireAPIKey before setup.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	// Reference: Gemini API documentation
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens range: 1 to 2097152 (Gemini 2.5 max context window)
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// Server configuration
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidServerPort, c.ServerPort)
	}

	// Chunking configuration
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got overlap=%d size=%d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("%w: embed_batch_size must be positive, got %d", ErrInvalidChunking, c.EmbedBatchSize)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Warn if using default dev password (but don't block - user might be in dev)
	if c.PostgresPassword == "weaver_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v\n"+
			"Note: 'allow' and 'prefer' modes are deprecated (vulnerable to MITM attacks)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// RequireGitHubToken verifies a GitHub token is configured before a GitHub
// ingest runs. Anonymous access works but hits a much lower rate limit, so
// this only warns when the token is missing.
func (c *Config) RequireGitHubToken() error {
	if c.GitHubToken == "" {
		slog.Warn("GITHUB_TOKEN not set, using anonymous GitHub API access (60 req/hour)")
	}
	return nil
}

// RequireSlackToken verifies a Slack bot token is configured before a Slack
// ingest runs. Unlike GitHub, Slack has no anonymous access.
func (c *Config) RequireSlackToken() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("%w: SLACK_BOT_TOKEN is required for Slack ingestion", ErrMissingConnectorToken)
	}
	return nil
}
