package agentclient

import "go.uber.org/zap"

// ModeMock indicates mock mode should be used.
const ModeMock = "MOCK"

// New creates an agent client for the given app mode.
// If mode is MOCK, returns a MockClient; otherwise returns an OpenAIClient.
func New(mode string, opts Options, logger *zap.Logger) Client {
	if mode == ModeMock {
		logger.Info("APP_MODE=MOCK detected, using mock agent client")
		return NewMockClient()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return NewClient(opts)
}
