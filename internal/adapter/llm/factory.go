package llm

import (
	"time"

	"go.uber.org/zap"
)

// ModeMock indicates mock mode should be used.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for the given app mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) LLMClient {
	if mode == ModeMock {
		logger.Info("APP_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
