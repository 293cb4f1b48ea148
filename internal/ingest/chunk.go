package ingest

import (
	"fmt"
	"strings"
)

// charsPerToken is the rough character-to-token ratio used for sizing
// chunks without a tokenizer.
const charsPerToken = 4

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// Chunker splits text into pieces of at most Size estimated tokens,
// carrying Overlap tokens of trailing context into the next chunk.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker validates the sizing parameters. Overlap must be smaller
// than Size or chunking cannot make progress.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// Split breaks text into chunks. Paragraphs are kept together when they
// fit; paragraphs larger than the chunk budget are split on sentence
// boundaries.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if EstimateTokens(text) <= c.Size {
		return []string{text}
	}

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if EstimateTokens(para) <= c.Size {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, splitSentences(para)...)
	}

	return c.pack(pieces)
}

// pack greedily fills chunks from pieces, starting each new chunk with
// the overlap tail of the previous one.
func (c *Chunker) pack(pieces []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk == "" {
			return
		}
		chunks = append(chunks, chunk)
		current.Reset()
		if tail := overlapTail(chunk, c.Overlap); tail != "" {
			current.WriteString(tail)
		}
	}

	for _, piece := range pieces {
		pieceTokens := EstimateTokens(piece)
		if EstimateTokens(current.String())+pieceTokens > c.Size && current.Len() > 0 {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)

		// A single oversized sentence still becomes its own chunk.
		if EstimateTokens(current.String()) > c.Size {
			flush()
		}
	}
	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// overlapTail returns the last overlap-worth of text, aligned to a word
// boundary.
func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	budget := overlap * charsPerToken
	if len(chunk) <= budget {
		return chunk
	}
	tail := chunk[len(chunk)-budget:]
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}

// splitSentences breaks a paragraph on sentence-ending punctuation.
func splitSentences(para string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(para); i++ {
		switch para[i] {
		case '.', '!', '?':
			// Consume trailing punctuation runs like "?!" or "...".
			end := i + 1
			for end < len(para) && (para[end] == '.' || para[end] == '!' || para[end] == '?') {
				end++
			}
			if end < len(para) && para[end] != ' ' && para[end] != '\n' {
				i = end - 1
				continue
			}
			if s := strings.TrimSpace(para[start:end]); s != "" {
				sentences = append(sentences, s)
			}
			start = end
			i = end - 1
		}
	}
	if s := strings.TrimSpace(para[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
