package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const GPTProviderName = "openai"

const (
	evaluateSystemPrompt = `You are an expert AI Prompt Engineer.
Analyze the user's prompt.
Provide a score from 1-10 based on clarity, context, and constraints.
Provide concise feedback on how to improve it.

Return JSON format: { "score": number, "feedback": "string" }`

	enhanceSystemPrompt = "You are a helpful assistant that rewrites prompts to be more effective, detailed, and robust using prompt engineering best practices. Maintain the original intent."

	codePlanSystemPrompt = `You are a Senior Software Architect.
Create a detailed technical implementation plan for the user's app idea.
Include:
1. High-level Architecture
2. Tech Stack Recommendations
3. Database Schema (rough draft)
4. Key API Endpoints
5. Step-by-step implementation strategy.

Format with Markdown.`

	funPromptRequest = "Generate one creative, funny, or thought-provoking prompt for an LLM. Return ONLY the prompt text."

	funPromptFallback = "Explain gravity to a chicken."
	funPromptEmpty    = "Tell me a joke."
	noFeedback        = "No feedback generated."
)

type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	AdvancedModel string
	MaxTokens     int
	Temperature   float64
	// RequestsPerSecond throttles outgoing calls; zero disables the limiter.
	RequestsPerSecond float64
}

type evaluationResponse struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// GPTProvider talks to an OpenAI-compatible chat completions API.
type GPTProvider struct {
	client        *openai.Client
	model         string
	advancedModel string
	maxTokens     int
	temperature   float64
	limiter       *rate.Limiter
	logger        *zap.Logger
}

func NewGPTProvider(cfg Config, logger *zap.Logger) *GPTProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.AdvancedModel == "" {
		cfg.AdvancedModel = cfg.Model
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &GPTProvider{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		advancedModel: cfg.AdvancedModel,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		limiter:       limiter,
		logger:        logger,
	}
}

func (g *GPTProvider) Name() string {
	return GPTProviderName
}

func (g *GPTProvider) Evaluate(ctx context.Context, content string) (Evaluation, error) {
	resp, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages(evaluateSystemPrompt, content),
		MaxTokens:   g.maxTokens,
		Temperature: float32(g.temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		g.logger.Error("Failed to get evaluation", zap.Error(err))
		return Evaluation{}, err
	}

	var parsed evaluationResponse
	text := firstChoice(resp)
	if err := parseJSON(text, &parsed); err != nil {
		g.logger.Error("Failed to parse evaluation response",
			zap.Error(err),
			zap.String("response", text))
		return Evaluation{}, err
	}

	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = EstimateTokens(content)
	}
	feedback := parsed.Feedback
	if feedback == "" {
		feedback = noFeedback
	}
	return Evaluation{
		Score:    int(math.Round(parsed.Score)),
		Feedback: feedback,
		Tokens:   tokens,
		Model:    resp.Model,
	}, nil
}

func (g *GPTProvider) Enhance(ctx context.Context, content string) (Generation, error) {
	return g.generate(ctx, g.model, enhanceSystemPrompt, content)
}

// CodePlan uses the advanced model since planning benefits from reasoning.
func (g *GPTProvider) CodePlan(ctx context.Context, idea string) (Generation, error) {
	return g.generate(ctx, g.advancedModel, codePlanSystemPrompt, idea)
}

// FunPrompt never fails: a canned prompt is returned when the call does.
func (g *GPTProvider) FunPrompt(ctx context.Context) (string, error) {
	resp, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: funPromptRequest},
		},
		MaxTokens:   g.maxTokens,
		Temperature: 1.2,
	})
	if err != nil {
		g.logger.Warn("Fun prompt generation failed, using fallback", zap.Error(err))
		return funPromptFallback, nil
	}
	if text := strings.TrimSpace(firstChoice(resp)); text != "" {
		return text, nil
	}
	return funPromptEmpty, nil
}

func (g *GPTProvider) generate(ctx context.Context, model, system, content string) (Generation, error) {
	resp, err := g.complete(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages(system, content),
		MaxTokens:   g.maxTokens,
		Temperature: float32(g.temperature),
	})
	if err != nil {
		g.logger.Error("Failed to get completion", zap.Error(err), zap.String("model", model))
		return Generation{}, err
	}
	return Generation{
		Text:   firstChoice(resp),
		Tokens: resp.Usage.TotalTokens,
		Model:  resp.Model,
	}, nil
}

func (g *GPTProvider) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("chat completion returned no choices")
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return resp, nil
}

func messages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func firstChoice(resp openai.ChatCompletionResponse) string {
	return resp.Choices[0].Message.Content
}

// parseJSON decodes model output, tolerating markdown code fences and text
// around the JSON object.
func parseJSON(content string, v any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != content {
		candidates = append(candidates, stripped)
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	var lastErr error
	for _, c := range candidates {
		if lastErr = json.Unmarshal([]byte(c), v); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid structured output: %w", lastErr)
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
