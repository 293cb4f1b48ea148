package rag

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// Generation defaults. Low temperature keeps answers grounded in the
// retrieved sources.
const (
	generateTemperature = 0.1
	generateMaxTokens   = 1000
)

// GenkitGenerator implements Generator on a Genkit model.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitGenerator creates a generator for the provider-qualified
// model name, e.g. "googleai/gemini-2.5-flash".
func NewGenkitGenerator(g *genkit.Genkit, modelName string) *GenkitGenerator {
	return &GenkitGenerator{g: g, modelName: modelName}
}

// Generate sends the prompt to the model and returns its text.
func (gg *GenkitGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](generateTemperature),
			MaxOutputTokens: generateMaxTokens,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate with %s: %w", gg.modelName, err)
	}
	return resp.Text(), nil
}
