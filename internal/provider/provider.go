package provider

import (
	"context"
	"math"
)

// Evaluation is the result of scoring a prompt on a 1..10 scale.
type Evaluation struct {
	Score    int
	Feedback string
	Tokens   int
	Model    string
}

// Generation is free text produced from a prompt.
type Generation struct {
	Text   string
	Tokens int
	Model  string
}

// Provider is the boundary over the generative AI service. Each method maps
// to exactly one AI action.
type Provider interface {
	Evaluate(ctx context.Context, content string) (Evaluation, error)
	Enhance(ctx context.Context, content string) (Generation, error)
	CodePlan(ctx context.Context, idea string) (Generation, error)
	FunPrompt(ctx context.Context) (string, error)
	Name() string
}

// EstimateTokens is a rough client-side count: about four characters per token.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(len(text)) / 4))
}
