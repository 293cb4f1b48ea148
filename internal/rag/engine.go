// Package rag answers questions over a user's indexed knowledge. It
// retrieves the most similar chunks from the knowledge store, builds a
// numbered-source prompt, and asks the model to answer strictly from
// that context. When the model is unavailable the engine degrades to an
// extractive answer assembled from the retrieved chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/weaverai/weaver/internal/knowledge"
)

const (
	// snippetLength caps source snippets returned alongside answers.
	snippetLength = 300

	// NoContentAnswer is returned without calling the model when the
	// user has nothing indexed yet.
	NoContentAnswer = "I don't have any indexed content to answer from yet. Ingest a GitHub repository or a Slack channel first, then ask again."
)

// ErrEmptyQuestion indicates a blank question.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher is the slice of the knowledge store the engine needs.
type Searcher interface {
	Search(ctx context.Context, userID, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	Count(ctx context.Context, userID string) (int, error)
}

// Source describes one retrieved chunk backing an answer.
type Source struct {
	Snippet    string            `json:"snippet"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

// Answer is the result of Ask.
type Answer struct {
	Question  string        `json:"question"`
	Text      string        `json:"answer"`
	Sources   []Source      `json:"sources"`
	Fallback  bool          `json:"fallback"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

// Engine ties retrieval and generation together.
type Engine struct {
	store     Searcher
	generator Generator
	topK      int
	logger    *slog.Logger
}

// New creates an Engine. topK <= 0 falls back to the store default.
func New(store Searcher, generator Generator, topK int, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	return &Engine{
		store:     store,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Ask retrieves context for the question and generates an answer
// scoped to userID's documents. A user with no indexed documents gets a
// fixed answer without a model call.
func (e *Engine) Ask(ctx context.Context, userID, question string, opts ...knowledge.SearchOption) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()

	count, err := e.store.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check indexed content: %w", err)
	}
	if count == 0 {
		return e.finish(&Answer{Question: question, Text: NoContentAnswer}, start), nil
	}

	searchOpts := append([]knowledge.SearchOption{knowledge.WithTopK(e.topK)}, opts...)
	results, err := e.store.Search(ctx, userID, question, searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge store: %w", err)
	}
	if len(results) == 0 {
		return e.finish(&Answer{Question: question, Text: NoContentAnswer}, start), nil
	}

	answer := &Answer{Question: question, Sources: buildSources(results)}

	text, err := e.generator.Generate(ctx, BuildPrompt(question, results))
	if err != nil {
		e.logger.Warn("generation failed, using extractive fallback",
			"user", userID,
			"error", err)
		answer.Text = extractiveAnswer(results)
		answer.Fallback = true
		return e.finish(answer, start), nil
	}

	answer.Text = strings.TrimSpace(text)
	return e.finish(answer, start), nil
}

// Search runs retrieval only, without generation.
func (e *Engine) Search(ctx context.Context, userID, query string, opts ...knowledge.SearchOption) ([]Source, error) {
	results, err := e.store.Search(ctx, userID, query, opts...)
	if err != nil {
		return nil, err
	}
	return buildSources(results), nil
}

func (e *Engine) finish(a *Answer, start time.Time) *Answer {
	a.Elapsed = time.Since(start)
	a.ElapsedMS = a.Elapsed.Milliseconds()
	return a
}

// BuildPrompt renders the numbered-source prompt sent to the model.
// Sources are numbered so the model can cite them as "Source N".
func BuildPrompt(question string, results []knowledge.Result) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant answering questions about a team's GitHub and Slack history.\n")
	b.WriteString("Answer the question using ONLY the numbered sources below. ")
	b.WriteString("Cite sources as (Source N). If the sources do not contain the answer, say so.\n\n")

	for i, r := range results {
		fmt.Fprintf(&b, "Source %d (%s", i+1, r.Document.Metadata["source_type"])
		if repo := r.Document.Metadata["repo"]; repo != "" {
			fmt.Fprintf(&b, ", %s", repo)
		}
		if channel := r.Document.Metadata["channel"]; channel != "" {
			fmt.Fprintf(&b, ", #%s", channel)
		}
		b.WriteString("):\n")
		b.WriteString(r.Document.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// extractiveAnswer stitches the retrieved chunks into a readable answer
// when the model cannot be reached.
func extractiveAnswer(results []knowledge.Result) string {
	var b strings.Builder
	b.WriteString("The language model is currently unavailable. Here is the most relevant indexed content:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] %s", i+1, snippet(r.Document.Content))
	}
	return b.String()
}

func buildSources(results []knowledge.Result) []Source {
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			Snippet:    snippet(r.Document.Content),
			Similarity: r.Similarity,
			Metadata:   r.Document.Metadata,
		})
	}
	return sources
}

func snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetLength {
		return content
	}
	cut := content[:snippetLength]
	if idx := strings.LastIndex(cut, " "); idx > snippetLength/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
