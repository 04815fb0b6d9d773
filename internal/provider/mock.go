package provider

import "context"

const MockProviderName = "mock"

const mockFeedback = "API Key missing. This is a mock evaluation. The prompt is clear but could be more specific regarding the desired output format."

// MockProvider answers every call deterministically. It stands in for the
// remote provider when no API key is configured.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return MockProviderName
}

func (m *MockProvider) Evaluate(ctx context.Context, content string) (Evaluation, error) {
	return Evaluation{
		Score:    7,
		Feedback: mockFeedback,
		Tokens:   EstimateTokens(content),
		Model:    MockProviderName,
	}, nil
}

func (m *MockProvider) Enhance(ctx context.Context, content string) (Generation, error) {
	return Generation{
		Text:   "API Key Missing. Mock Enhancement: " + content + " [Enhanced]",
		Tokens: 10,
		Model:  MockProviderName,
	}, nil
}

func (m *MockProvider) CodePlan(ctx context.Context, idea string) (Generation, error) {
	return Generation{
		Text:   "API Key Missing. Mock Plan for: " + idea,
		Tokens: 20,
		Model:  MockProviderName,
	}, nil
}

func (m *MockProvider) FunPrompt(ctx context.Context) (string, error) {
	return "Write a haiku about a missing API Key.", nil
}
