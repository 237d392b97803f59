package store

import (
	"time"
)

// LLMExchange represents a prompt/response pair for caching
type LLMExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "gemini"
	Model     string    `json:"model"`
	Channel   string    `json:"channel"`
	Topic     string    `json:"topic"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// SaveLLMExchange writes an exchange under the "llm" step directory.
// Returns the path to the saved file.
func (c *Cache) SaveLLMExchange(exchange LLMExchange) (string, error) {
	return SaveStepOutput(c, StepLLM, exchange)
}
