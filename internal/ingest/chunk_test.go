package ingest

import (
	"strings"
	"testing"
)

func TestNewChunker_Validation(t *testing.T) {
	if _, err := NewChunker(0, 0); err == nil {
		t.Error("NewChunker(0, 0) should fail")
	}
	if _, err := NewChunker(100, 100); err == nil {
		t.Error("overlap equal to size should fail")
	}
	if _, err := NewChunker(100, -1); err == nil {
		t.Error("negative overlap should fail")
	}
	if _, err := NewChunker(100, 20); err != nil {
		t.Errorf("NewChunker(100, 20) error: %v", err)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("12345678"); got != 2 {
		t.Errorf("EstimateTokens = %d, want 2", got)
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c, _ := NewChunker(500, 50)
	chunks := c.Split("a short paragraph")
	if len(chunks) != 1 || chunks[0] != "a short paragraph" {
		t.Errorf("got %v, want single unchanged chunk", chunks)
	}
}

func TestSplit_Empty(t *testing.T) {
	c, _ := NewChunker(500, 50)
	if chunks := c.Split("  \n  "); chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
}

func TestSplit_ParagraphsKeptTogether(t *testing.T) {
	c, _ := NewChunker(20, 0)
	// Each paragraph is ~10 tokens; two fit per chunk.
	para := strings.Repeat("word ", 8)
	text := strings.TrimSpace(strings.Repeat(para+"\n\n", 4))

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, chunk := range chunks {
		if EstimateTokens(chunk) > 20+5 {
			t.Errorf("chunk %d is %d tokens, exceeds budget", i, EstimateTokens(chunk))
		}
	}
}

func TestSplit_OversizeParagraphSplitOnSentences(t *testing.T) {
	c, _ := NewChunker(10, 0)
	text := "This is sentence one. This is sentence two. This is sentence three. This is sentence four."

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2: %v", len(chunks), chunks)
	}
	var joined strings.Builder
	for _, chunk := range chunks {
		joined.WriteString(chunk)
		joined.WriteString(" ")
	}
	for _, want := range []string{"sentence one", "sentence two", "sentence three", "sentence four"} {
		if !strings.Contains(joined.String(), want) {
			t.Errorf("chunks lost %q", want)
		}
	}
}

func TestSplit_OverlapCarried(t *testing.T) {
	c, _ := NewChunker(10, 4)
	text := "Alpha beta gamma delta epsilon. Zeta eta theta iota kappa. Lambda mu nu xi omicron. Pi rho sigma tau upsilon."

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	// Each later chunk should begin with text present in its predecessor.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		if !strings.Contains(chunks[i-1], firstWord) {
			t.Errorf("chunk %d starts with %q, not found in previous chunk %q", i, firstWord, chunks[i-1])
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Done")
	want := []string{"One.", "Two!", "Three?", "Done"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences_DecimalNotSplit(t *testing.T) {
	got := splitSentences("Version 1.2 shipped. Done")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 sentences", got)
	}
	if got[0] != "Version 1.2 shipped." {
		t.Errorf("first sentence = %q", got[0])
	}
}
