package ingest

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "fenced code block replaced",
			input: "before\n```go\nfunc main() {}\n```\nafter",
			want:  "before\n[CODE_BLOCK]\nafter",
		},
		{
			name:  "inline code bracketed",
			input: "run `go test` locally",
			want:  "run [go test] locally",
		},
		{
			name:  "whitespace collapsed",
			input: "too   many\t\tspaces",
			want:  "too many spaces",
		},
		{
			name:  "blank line runs collapsed",
			input: "a\n\n\n\n\nb",
			want:  "a\n\nb",
		},
		{
			name:  "crlf normalized",
			input: "line one\r\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "leading and trailing trimmed",
			input: "  \n  hello  \n  ",
			want:  "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanText_MultipleCodeBlocks(t *testing.T) {
	input := "first\n```\na\n```\nmiddle\n```py\nb\n```\nlast"
	got := CleanText(input)
	if strings.Count(got, "[CODE_BLOCK]") != 2 {
		t.Errorf("got %q, want two [CODE_BLOCK] placeholders", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("got %q, fences should be gone", got)
	}
}
