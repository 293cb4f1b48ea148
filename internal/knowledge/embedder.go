package knowledge

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Embedder generates embedding vectors for documents and queries.
// Defined here by the consumer; the production implementation wraps a
// Genkit embedder, tests use a deterministic fake.
type Embedder interface {
	// EmbedDocuments embeds texts for indexing, batchSize texts per API call.
	// Returns one vector per input text, in order.
	EmbedDocuments(ctx context.Context, texts []string, batchSize int) ([][]float32, error)

	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// GenkitEmbedder adapts a Genkit ai.Embedder to the Embedder interface.
type GenkitEmbedder struct {
	embedder ai.Embedder
}

// NewGenkitEmbedder wraps a Genkit embedder.
func NewGenkitEmbedder(embedder ai.Embedder) *GenkitEmbedder {
	return &GenkitEmbedder{embedder: embedder}
}

// EmbedDocuments embeds texts in batches.
// Errors are wrapped with the failing batch offset so a partial ingest
// can be diagnosed and resumed.
func (e *GenkitEmbedder) EmbedDocuments(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		input := make([]*ai.Document, 0, end-start)
		for _, text := range texts[start:end] {
			input = append(input, &ai.Document{
				Content: []*ai.Part{ai.NewTextPart(text)},
			})
		}

		resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
		if err != nil {
			return nil, fmt.Errorf("embedding batch starting at %d: %w", start, err)
		}
		if len(resp.Embeddings) != len(input) {
			return nil, fmt.Errorf("embedding batch starting at %d: got %d embeddings for %d inputs",
				start, len(resp.Embeddings), len(input))
		}

		for i, emb := range resp.Embeddings {
			if len(emb.Embedding) == 0 {
				return nil, fmt.Errorf("empty embedding returned for text %d", start+i)
			}
			vectors = append(vectors, emb.Embedding)
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (e *GenkitEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(query)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}
	return resp.Embeddings[0].Embedding, nil
}
