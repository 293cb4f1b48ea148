// Package knowledge manages per-user document collections with vector
// search over PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// ErrEmptyUserID is returned when a store operation is attempted without a user.
var ErrEmptyUserID = errors.New("user id must not be empty")

// ErrEmptyQuery is returned when Search is called with an empty query.
var ErrEmptyQuery = errors.New("query must not be empty")

// Querier defines the database operations Store needs.
// Following Go best practices the interface is defined by the consumer,
// not the provider; *pgxpool.Pool satisfies it directly.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages knowledge documents with vector search capabilities.
// Every operation is scoped to a user ID; documents of different users
// never mix in results.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db        Querier
	embedder  Embedder
	batchSize int
	logger    *slog.Logger
}

// New creates a new Store instance.
//
// Parameters:
//   - db: Database querier implementing Querier (usually *pgxpool.Pool)
//   - embedder: Embedder for generating vectors (see embedder.go)
//   - batchSize: Number of chunks embedded per API call (<=0 = default 50)
//   - logger: Logger for debugging (nil = use default)
func New(db Querier, embedder Embedder, batchSize int, logger *slog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:        db,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Add embeds and upserts documents for a user.
// Contents are embedded in batches; rows are keyed by (user_id, id) so
// re-ingesting the same source is idempotent.
func (s *Store) Add(ctx context.Context, userID string, docs ...Document) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	for i, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %w", doc.ID, err)
		}

		createdAt := doc.CreateAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		embedding := pgvector.NewVector(vectors[i])
		_, err = s.db.Exec(ctx, `
			INSERT INTO documents (id, user_id, content, metadata, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, id) DO UPDATE SET
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding`,
			doc.ID, userID, doc.Content, metadataJSON, embedding, createdAt)
		if err != nil {
			return fmt.Errorf("failed to upsert document %q: %w", doc.ID, err)
		}
	}

	s.logger.Debug("added documents", "user", userID, "count", len(docs))
	return nil
}

// Search performs semantic search on a user's collection using functional options.
// It returns the most similar documents to the query, ordered by similarity.
// A timeout bounds embedding generation and the vector query.
//
// Example usage:
//
//	results, err := store.Search(ctx, "alice", "deployment failures",
//	    knowledge.WithTopK(10),
//	    knowledge.WithFilter("source_type", "slack_message"))
func (s *Store) Search(ctx context.Context, userID, query string, opts ...SearchOption) ([]Result, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}

	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vector, err := s.embedder.EmbedQuery(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	queryEmbedding := pgvector.NewVector(vector)

	// SECURITY NOTE (SQL injection prevention): the filter is always
	// serialized with json.Marshal and compared with the parameterized
	// JSONB @> operator; user input never reaches the SQL text.
	var rows pgx.Rows
	if len(cfg.filter) > 0 {
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", marshalErr)
		}
		rows, err = s.db.Query(queryCtx, `
			SELECT id, content, metadata, created_at,
			       1 - (embedding <=> $2) AS similarity
			FROM documents
			WHERE user_id = $1 AND metadata @> $3
			ORDER BY embedding <=> $2
			LIMIT $4`,
			userID, queryEmbedding, filterJSON, cfg.topK)
	} else {
		rows, err = s.db.Query(queryCtx, `
			SELECT id, content, metadata, created_at,
			       1 - (embedding <=> $2) AS similarity
			FROM documents
			WHERE user_id = $1
			ORDER BY embedding <=> $2
			LIMIT $3`,
			userID, queryEmbedding, cfg.topK)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, cfg.topK)
	for rows.Next() {
		var (
			doc        Document
			metadata   []byte
			createdAt  time.Time
			similarity float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadata, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		doc.UserID = userID
		doc.CreateAt = createdAt
		doc.Metadata = s.parseMetadata(doc.ID, metadata)

		results = append(results, Result{
			Document:   doc,
			Similarity: float32(similarity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}

	return results, nil
}

// Count returns the number of documents in a user's collection.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}

	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	// Overflow protection for 32-bit platforms
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}

	return int(count), nil
}

// Delete removes documents from a user's collection by ID.
func (s *Store) Delete(ctx context.Context, userID string, docIDs ...string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	for _, docID := range docIDs {
		if _, err := s.db.Exec(ctx,
			`DELETE FROM documents WHERE user_id = $1 AND id = $2`, userID, docID); err != nil {
			return fmt.Errorf("failed to delete document %q: %w", docID, err)
		}
	}

	s.logger.Debug("deleted documents", "user", userID, "count", len(docIDs))
	return nil
}

// Clear wipes a user's entire collection.
// Returns the number of documents removed.
func (s *Store) Clear(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear collection: %w", err)
	}

	removed := int(tag.RowsAffected())
	s.logger.Info("cleared collection", "user", userID, "removed", removed)
	return removed, nil
}

// ListSourceTypes returns per-source-type document counts for a user.
func (s *Store) ListSourceTypes(ctx context.Context, userID string) (map[string]int, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(metadata->>'source_type', 'unknown') AS source_type, COUNT(*)
		FROM documents
		WHERE user_id = $1
		GROUP BY 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source types: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sourceType string
		var count int64
		if err := rows.Scan(&sourceType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source type row: %w", err)
		}
		counts[sourceType] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source type rows: %w", err)
	}

	return counts, nil
}

// ListRepositories returns the distinct GitHub repositories indexed for a user,
// newest first.
func (s *Store) ListRepositories(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	rows, err := s.db.Query(ctx, `
		SELECT metadata->>'repo' AS repo, MAX(created_at) AS latest
		FROM documents
		WHERE user_id = $1 AND metadata->>'repo' IS NOT NULL
		GROUP BY 1
		ORDER BY latest DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		var latest time.Time
		if err := rows.Scan(&repo, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository rows: %w", err)
	}

	return repos, nil
}

// SampleBySourceType returns up to limit recent documents of a source type
// without similarity calculation. Used by stats to surface example repos
// and channels per source.
func (s *Store) SampleBySourceType(ctx context.Context, userID, sourceType string, limit int32) ([]Document, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	const maxListLimit = 1000
	if limit <= 0 || limit > maxListLimit {
		s.logger.Warn("invalid list limit", "limit", limit, "max", maxListLimit)
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}
	if !ValidSourceType(sourceType) {
		s.logger.Warn("invalid sourceType requested", "sourceType", sourceType)
		return nil, fmt.Errorf("invalid sourceType: %q", sourceType)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, content, metadata, created_at
		FROM documents
		WHERE user_id = $1 AND metadata->>'source_type' = $2
		ORDER BY created_at DESC
		LIMIT $3`, userID, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := make([]Document, 0, limit)
	for rows.Next() {
		var (
			doc       Document
			metadata  []byte
			createdAt time.Time
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc.UserID = userID
		doc.CreateAt = createdAt
		doc.Metadata = s.parseMetadata(doc.ID, metadata)
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document rows: %w", err)
	}

	return documents, nil
}

// parseMetadata unmarshals a JSONB metadata column, degrading to an empty
// map on parse failure.
func (s *Store) parseMetadata(docID string, raw []byte) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", docID, "error", err)
		metadata = make(map[string]string)
	}
	return metadata
}
