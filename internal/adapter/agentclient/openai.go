package agentclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/metrics"
)

const defaultPollInterval = 500 * time.Millisecond

// OpenAIClient talks to the OpenAI Assistants API.
type OpenAIClient struct {
	api          *openai.Client
	pollInterval time.Duration
	logger       *zap.Logger
}

// Ensure OpenAIClient implements Client interface.
var _ Client = (*OpenAIClient)(nil)

// NewClient creates a new OpenAI agent client.
func NewClient(opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		api:          openai.NewClientWithConfig(cfg),
		pollInterval: poll,
		logger:       logger.With(zap.String("component", "agentclient")),
	}
}

// CreateAssistant creates the upstream assistant and returns its id.
func (c *OpenAIClient) CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error) {
	defer metrics.ObserveUpstream("create_assistant", time.Now())
	a, err := c.api.CreateAssistant(ctx, assistantRequest(spec))
	if err != nil {
		return "", upstreamError("create assistant", err)
	}
	return a.ID, nil
}

// UpdateAssistant rewrites name, instructions and model upstream.
func (c *OpenAIClient) UpdateAssistant(ctx context.Context, assistantID string, spec AssistantSpec) error {
	defer metrics.ObserveUpstream("update_assistant", time.Now())
	if _, err := c.api.ModifyAssistant(ctx, assistantID, assistantRequest(spec)); err != nil {
		return upstreamError("update assistant", err)
	}
	return nil
}

// SetResources replaces the tool set and tool resources of the assistant.
func (c *OpenAIClient) SetResources(ctx context.Context, assistantID string, res Resources) error {
	defer metrics.ObserveUpstream("set_resources", time.Now())
	current, err := c.api.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return upstreamError("retrieve assistant", err)
	}

	req := openai.AssistantRequest{
		Model:        current.Model,
		Name:         current.Name,
		Instructions: current.Instructions,
		Tools:        assistantTools(res.Tools),
	}
	resources := &openai.AssistantToolResource{}
	if len(res.VectorStoreIDs) > 0 {
		resources.FileSearch = &openai.AssistantToolFileSearch{VectorStoreIDs: res.VectorStoreIDs}
	}
	if len(res.CodeFileIDs) > 0 {
		resources.CodeInterpreter = &openai.AssistantToolCodeInterpreter{FileIDs: res.CodeFileIDs}
	}
	req.ToolResources = resources

	if _, err := c.api.ModifyAssistant(ctx, assistantID, req); err != nil {
		return upstreamError("update assistant resources", err)
	}
	return nil
}

// DeleteAssistant deletes the upstream assistant.
func (c *OpenAIClient) DeleteAssistant(ctx context.Context, assistantID string) error {
	defer metrics.ObserveUpstream("delete_assistant", time.Now())
	if _, err := c.api.DeleteAssistant(ctx, assistantID); err != nil && !isNotFound(err) {
		return upstreamError("delete assistant", err)
	}
	return nil
}

// UploadFile uploads a document for use by assistants.
func (c *OpenAIClient) UploadFile(ctx context.Context, filename string, data []byte) (*File, error) {
	defer metrics.ObserveUpstream("upload_file", time.Now())
	f, err := c.api.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    filename,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return nil, upstreamError("upload file", err)
	}
	return &File{ID: f.ID, Bytes: f.Bytes}, nil
}

// DeleteFile deletes an uploaded file.
func (c *OpenAIClient) DeleteFile(ctx context.Context, fileID string) error {
	defer metrics.ObserveUpstream("delete_file", time.Now())
	if err := c.api.DeleteFile(ctx, fileID); err != nil && !isNotFound(err) {
		return upstreamError("delete file", err)
	}
	return nil
}

// CreateVectorStore creates an empty vector store.
func (c *OpenAIClient) CreateVectorStore(ctx context.Context, name string) (string, error) {
	defer metrics.ObserveUpstream("create_vector_store", time.Now())
	vs, err := c.api.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return "", upstreamError("create vector store", err)
	}
	return vs.ID, nil
}

// AttachFile adds an uploaded file to a vector store.
func (c *OpenAIClient) AttachFile(ctx context.Context, vectorStoreID, fileID string) error {
	defer metrics.ObserveUpstream("attach_file", time.Now())
	if _, err := c.api.CreateVectorStoreFile(ctx, vectorStoreID, openai.VectorStoreFileRequest{FileID: fileID}); err != nil {
		return upstreamError("attach file", err)
	}
	return nil
}

// DetachFile removes a file from a vector store.
func (c *OpenAIClient) DetachFile(ctx context.Context, vectorStoreID, fileID string) error {
	defer metrics.ObserveUpstream("detach_file", time.Now())
	if err := c.api.DeleteVectorStoreFile(ctx, vectorStoreID, fileID); err != nil && !isNotFound(err) {
		return upstreamError("detach file", err)
	}
	return nil
}

// CreateThread creates an empty thread.
func (c *OpenAIClient) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	defer metrics.ObserveUpstream("create_thread", time.Now())
	req := openai.ThreadRequest{}
	if len(metadata) > 0 {
		req.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			req.Metadata[k] = v
		}
	}
	th, err := c.api.CreateThread(ctx, req)
	if err != nil {
		return "", upstreamError("create thread", err)
	}
	return th.ID, nil
}

// DeleteThread deletes a thread.
func (c *OpenAIClient) DeleteThread(ctx context.Context, threadID string) error {
	defer metrics.ObserveUpstream("delete_thread", time.Now())
	if _, err := c.api.DeleteThread(ctx, threadID); err != nil && !isNotFound(err) {
		return upstreamError("delete thread", err)
	}
	return nil
}

// RunTurn posts the message, starts a run and polls it to completion.
func (c *OpenAIClient) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	defer metrics.ObserveUpstream("run_turn", time.Now())

	msg, err := c.api.CreateMessage(ctx, req.ThreadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Content,
	})
	if err != nil {
		return nil, upstreamError("create message", err)
	}

	runReq := openai.RunRequest{
		AssistantID:            req.AssistantID,
		AdditionalInstructions: req.Instructions,
	}
	for _, name := range req.Tools {
		runReq.Tools = append(runReq.Tools, openai.Tool{Type: openai.ToolType(name)})
	}
	run, err := c.api.CreateRun(ctx, req.ThreadID, runReq)
	if err != nil {
		return nil, upstreamError("create run", err)
	}

	run, err = c.waitForRun(ctx, req.ThreadID, run)
	if err != nil {
		c.cancelRun(ctx, req.ThreadID, run)
		return nil, err
	}

	limit := 10
	order := "desc"
	list, err := c.api.ListMessage(ctx, req.ThreadID, &limit, &order, nil, nil, &run.ID)
	if err != nil {
		return nil, upstreamError("list messages", err)
	}
	for _, m := range list.Messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		return &TurnResult{
			UserMessageID: msg.ID,
			MessageID:     m.ID,
			RunID:         run.ID,
			Reply:         messageText(m),
		}, nil
	}
	return nil, &domain.UpstreamError{Op: "read reply", Err: fmt.Errorf("run %s produced no assistant message", run.ID)}
}

// waitForRun polls until the run reaches a terminal status or ctx ends.
func (c *OpenAIClient) waitForRun(ctx context.Context, threadID string, run openai.Run) (openai.Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		switch string(run.Status) {
		case "completed":
			return run, nil
		case "failed", "expired", "cancelled", "cancelling", "incomplete", "requires_action":
			reason := string(run.Status)
			if run.LastError != nil && run.LastError.Message != "" {
				reason += ": " + run.LastError.Message
			}
			return run, &domain.UpstreamError{Op: "run", Err: errors.New(reason)}
		}

		select {
		case <-ctx.Done():
			return run, &domain.UpstreamError{Op: "run", Err: fmt.Errorf("run %s did not finish: %w", run.ID, ctx.Err())}
		case <-ticker.C:
		}

		next, err := c.api.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return run, upstreamError("retrieve run", err)
		}
		run = next
	}
}

// cancelRun cancels a run left active upstream. The thread accepts no new
// messages until its run ends.
func (c *OpenAIClient) cancelRun(ctx context.Context, threadID string, run openai.Run) {
	switch string(run.Status) {
	case "queued", "in_progress", "requires_action":
	default:
		return
	}
	if _, err := c.api.CancelRun(context.WithoutCancel(ctx), threadID, run.ID); err != nil {
		c.logger.Warn("failed to cancel run",
			zap.String("thread_id", threadID),
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
}

func assistantRequest(spec AssistantSpec) openai.AssistantRequest {
	name := spec.Name
	instructions := spec.Instructions
	req := openai.AssistantRequest{
		Model:        spec.Model,
		Name:         &name,
		Instructions: &instructions,
	}
	if len(spec.Metadata) > 0 {
		req.Metadata = make(map[string]any, len(spec.Metadata))
		for k, v := range spec.Metadata {
			req.Metadata[k] = v
		}
	}
	return req
}

func assistantTools(names []string) []openai.AssistantTool {
	tools := make([]openai.AssistantTool, 0, len(names))
	for _, name := range names {
		tools = append(tools, openai.AssistantTool{Type: openai.AssistantToolType(name)})
	}
	return tools
}

func messageText(m openai.Message) string {
	var parts []string
	for _, content := range m.Content {
		if content.Text != nil {
			parts = append(parts, content.Text.Value)
		}
	}
	return strings.Join(parts, "\n")
}

func isNotFound(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusNotFound
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusNotFound
	}
	return false
}

func upstreamError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{Op: op, Status: apiErr.HTTPStatusCode, Err: apiErr}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.UpstreamError{Op: op, Status: reqErr.HTTPStatusCode, Err: reqErr.Err}
	}
	return &domain.UpstreamError{Op: op, Err: err}
}
