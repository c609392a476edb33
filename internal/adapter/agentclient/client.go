// Package agentclient provides the client for the hosted conversational agent API.
package agentclient

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Hosted tool names.
const (
	ToolFileSearch      = "file_search"
	ToolCodeInterpreter = "code_interpreter"
)

// AssistantSpec is the upstream definition of an assistant.
type AssistantSpec struct {
	Name         string
	Instructions string
	Model        string
	Metadata     map[string]string
}

// Resources are the tools and files an upstream assistant may use.
type Resources struct {
	Tools          []string
	VectorStoreIDs []string
	CodeFileIDs    []string
}

// File is an uploaded file.
type File struct {
	ID    string
	Bytes int
}

// TurnRequest is one user message submitted to a thread.
type TurnRequest struct {
	ThreadID    string
	AssistantID string
	Content     string
	// Instructions are appended to the assistant instructions for this run.
	Instructions string
	// Tools overrides the assistant tools for this run when non-empty.
	Tools []string
}

// TurnResult is the reply produced by a completed run.
type TurnResult struct {
	UserMessageID string
	MessageID     string
	RunID         string
	Reply         string
}

// Client defines the operations the gateway needs from the hosted agent.
//
// Delete operations treat an upstream 404 as success.
type Client interface {
	CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error)
	UpdateAssistant(ctx context.Context, assistantID string, spec AssistantSpec) error
	SetResources(ctx context.Context, assistantID string, res Resources) error
	DeleteAssistant(ctx context.Context, assistantID string) error

	UploadFile(ctx context.Context, filename string, data []byte) (*File, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStore(ctx context.Context, name string) (string, error)
	AttachFile(ctx context.Context, vectorStoreID, fileID string) error
	DetachFile(ctx context.Context, vectorStoreID, fileID string) error

	CreateThread(ctx context.Context, metadata map[string]string) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	// RunTurn posts the user message, runs the assistant on the thread and
	// waits for the reply. The wait is bounded by ctx.
	RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
}

// Options configure the go-openai backed client.
type Options struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *zap.Logger
}
