// Package llm provides an abstraction for the completion API used by the evaluator.
package llm

import "context"

// Message roles accepted by Complete.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt message.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a single non-streaming completion call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	// JSON asks the model for a JSON object response.
	JSON bool
}

// Completion is the first choice of a completion call.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
