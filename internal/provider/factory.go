package provider

import "go.uber.org/zap"

// New returns the remote provider, or the mock one when no API key is set.
func New(cfg Config, logger *zap.Logger) Provider {
	if cfg.APIKey == "" {
		logger.Warn("No AI provider API key configured, using mock responses")
		return NewMockProvider()
	}
	logger.Info("Using OpenAI provider", zap.String("model", cfg.Model), zap.String("advanced_model", cfg.AdvancedModel))
	return NewGPTProvider(cfg, logger)
}
