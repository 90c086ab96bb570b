package brandprompt

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"brandguard/internal/providers/genai"
)

// Optimizer rewrites a raw user prompt for clarity before composition. The
// original prompt is always retained alongside the rewrite, so optimizers are
// free to be aggressive.
type Optimizer interface {
	Optimize(ctx context.Context, prompt string) (string, error)
}

// StaticOptimizer applies deterministic clean-up without calling a model:
// whitespace normalization and sentence capitalization.
type StaticOptimizer struct{}

func NewStaticOptimizer() *StaticOptimizer {
	return &StaticOptimizer{}
}

func (s *StaticOptimizer) Optimize(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned := strings.Join(strings.Fields(prompt), " ")
	if cleaned == "" {
		return "", nil
	}
	runes := []rune(cleaned)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), nil
}

var _ Optimizer = (*StaticOptimizer)(nil)

// GeminiOptimizer asks the reasoning model for a tightened rewrite. Any model
// failure, including running without an API key, degrades to the fallback
// optimizer rather than surfacing an error.
type GeminiOptimizer struct {
	client   *genai.Client
	fallback Optimizer
}

func NewGeminiOptimizer(client *genai.Client, fallback Optimizer) *GeminiOptimizer {
	if fallback == nil {
		fallback = NewStaticOptimizer()
	}
	return &GeminiOptimizer{client: client, fallback: fallback}
}

func (g *GeminiOptimizer) Optimize(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", nil
	}

	rewrite, err := g.client.GenerateText(ctx, genai.TextRequest{
		Prompt: buildRewriteInstruction(prompt),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return g.fallback.Optimize(ctx, prompt)
	}
	rewrite = strings.TrimSpace(rewrite)
	if rewrite == "" {
		return g.fallback.Optimize(ctx, prompt)
	}
	return rewrite, nil
}

func buildRewriteInstruction(prompt string) string {
	return fmt.Sprintf("Rewrite the following image request as one concise, concrete art-direction sentence. Keep every factual detail, drop filler words, and reply with the rewritten sentence only, no quotes or markdown. Request: %q", prompt)
}

var _ Optimizer = (*GeminiOptimizer)(nil)
