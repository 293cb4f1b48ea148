package knowledge

import "time"

// VectorDimension is the embedding width of the documents table.
// text-embedding-004 outputs 768 dimensions; the pgvector column is
// declared vector(768) to match.
const VectorDimension = 768

// Source type constants for knowledge documents.
// These are the values stored under the "source_type" metadata key.
const (
	// SourceTypeGitHubIssue represents an ingested GitHub issue with its comments.
	SourceTypeGitHubIssue = "github_issue"

	// SourceTypeGitHubPR represents an ingested GitHub pull request with its
	// issue comments and review comments.
	SourceTypeGitHubPR = "github_pull_request"

	// SourceTypeSlackMessage represents an ingested Slack channel message,
	// including thread replies.
	SourceTypeSlackMessage = "slack_message"
)

// ValidSourceType reports whether s is a known source type.
func ValidSourceType(s string) bool {
	switch s {
	case SourceTypeGitHubIssue, SourceTypeGitHubPR, SourceTypeSlackMessage:
		return true
	}
	return false
}

// Document represents a knowledge document chunk.
// Metadata is map[string]string so it round-trips cleanly through JSONB
// and metadata filters.
type Document struct {
	ID       string            // Stable identifier (sha256 of source identity + chunk index)
	UserID   string            // Owning user; every store operation is scoped to this
	Content  string            // Chunk text content
	Metadata map[string]string // source_type, repo, channel, url, chunk_index, ...
	CreateAt time.Time         // Creation timestamp
}

// Result represents a single search result with similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity score (0-1), 1 - cosine distance
}

// Search limits.
const (
	// DefaultTopK is the number of results returned when WithTopK is not given.
	DefaultTopK = 5

	// MaxTopK caps the number of results a single search may request.
	MaxTopK = 20

	// defaultSearchTimeout bounds embedding generation plus the vector query.
	defaultSearchTimeout = 10 * time.Second
)

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return.
// Values outside [1, MaxTopK] are clamped.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter adds a metadata filter to restrict search results.
// Multiple calls to WithFilter add additional filters (AND logic).
// Example: WithFilter("source_type", "slack_message")
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the default search timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		filter:  nil,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.topK < 1 {
		cfg.topK = DefaultTopK
	}
	if cfg.topK > MaxTopK {
		cfg.topK = MaxTopK
	}
	return cfg
}
