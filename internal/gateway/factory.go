package gateway

import (
	"fmt"

	"thinktank/internal/config"
)

// New builds a Client from the configured provider. maxTokens selects the
// per-role output budget: agents and the foreperson run different limits.
func New(cfg *config.Config, maxTokens int) (Client, error) {
	llm := cfg.LLM
	switch llm.Provider {
	case "anthropic":
		c := DefaultAnthropicConfig(llm.APIKey)
		if llm.BaseURL != "" {
			c.BaseURL = llm.BaseURL
		}
		if llm.Model != "" {
			c.Model = llm.Model
		}
		if maxTokens > 0 {
			c.MaxTokens = maxTokens
		}
		c.Temperature = llm.Temperature
		c.Timeout = cfg.GetLLMTimeout()
		return NewAnthropicClient(c), nil
	case "gemini":
		c := DefaultGeminiConfig(llm.APIKey)
		if llm.BaseURL != "" {
			c.BaseURL = llm.BaseURL
		}
		if llm.Model != "" {
			c.Model = llm.Model
		}
		if maxTokens > 0 {
			c.MaxTokens = maxTokens
		}
		c.Temperature = llm.Temperature
		c.Timeout = cfg.GetLLMTimeout()
		return NewGeminiClient(c), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid: %v)", llm.Provider, config.ValidProviders)
	}
}
