package llm

import (
	"context"
	"sync"
)

// MockResponse is the default answer of the mock: a well-formed evaluation
// with no label, so the evaluator records the message as not categorized.
const MockResponse = `{"category": "", "topic": "", "classification": "Answered", "sentiment": 0}`

// MockClient is a mock implementation of LLMClient for testing. Queued
// responses are returned in order, then MockResponse.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []*CompletionRequest
}

// NewMockClient creates a new mock LLM client.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// Enqueue appends a response.
func (m *MockClient) Enqueue(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, content)
}

// Fail makes the next call return err.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Requests returns the requests received so far.
func (m *MockClient) Requests() []*CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*CompletionRequest(nil), m.requests...)
}

// Complete returns the next queued response.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}

	content := MockResponse
	if len(m.responses) > 0 {
		content = m.responses[0]
		m.responses = m.responses[1:]
	}
	return &Completion{
		Content:          content,
		Model:            req.Model,
		PromptTokens:     estimateTokens(req),
		CompletionTokens: len(content) / 4,
	}, nil
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(req *CompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
