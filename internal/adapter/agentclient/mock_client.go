package agentclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// MockClient is an in-process stand-in for the hosted agent. It keeps
// assistants, threads and vector stores in memory and echoes user messages.
// Turns accept unknown threads and assistants so rows created by a previous
// process keep working.
type MockClient struct {
	mu      sync.Mutex
	seq     int
	fail    map[string]error
	replyFn func(req TurnRequest) string

	Assistants   map[string]AssistantSpec
	Resources    map[string]Resources
	Threads      map[string][]string
	Files        map[string]int
	VectorStores map[string][]string
	Turns        []TurnRequest
}

// Ensure MockClient implements Client interface.
var _ Client = (*MockClient)(nil)

// NewMockClient creates a new mock agent client.
func NewMockClient() *MockClient {
	return &MockClient{
		fail:         map[string]error{},
		Assistants:   map[string]AssistantSpec{},
		Resources:    map[string]Resources{},
		Threads:      map[string][]string{},
		Files:        map[string]int{},
		VectorStores: map[string][]string{},
	}
}

// FailOn makes every call of op return err until cleared with a nil err.
// Op names match the method names, e.g. "RunTurn".
func (m *MockClient) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// ReplyWith replaces the echo reply.
func (m *MockClient) ReplyWith(fn func(req TurnRequest) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyFn = fn
}

func (m *MockClient) next(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_mock_%d", prefix, m.seq)
}

func (m *MockClient) CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["CreateAssistant"]; err != nil {
		return "", err
	}
	id := m.next("asst")
	m.Assistants[id] = spec
	return id, nil
}

func (m *MockClient) UpdateAssistant(ctx context.Context, assistantID string, spec AssistantSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["UpdateAssistant"]; err != nil {
		return err
	}
	if _, ok := m.Assistants[assistantID]; !ok {
		return notFoundError("update assistant", assistantID)
	}
	m.Assistants[assistantID] = spec
	return nil
}

func (m *MockClient) SetResources(ctx context.Context, assistantID string, res Resources) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["SetResources"]; err != nil {
		return err
	}
	if _, ok := m.Assistants[assistantID]; !ok {
		return notFoundError("update assistant resources", assistantID)
	}
	m.Resources[assistantID] = res
	return nil
}

func (m *MockClient) DeleteAssistant(ctx context.Context, assistantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["DeleteAssistant"]; err != nil {
		return err
	}
	delete(m.Assistants, assistantID)
	delete(m.Resources, assistantID)
	return nil
}

func (m *MockClient) UploadFile(ctx context.Context, filename string, data []byte) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["UploadFile"]; err != nil {
		return nil, err
	}
	id := m.next("file")
	m.Files[id] = len(data)
	return &File{ID: id, Bytes: len(data)}, nil
}

func (m *MockClient) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["DeleteFile"]; err != nil {
		return err
	}
	delete(m.Files, fileID)
	return nil
}

func (m *MockClient) CreateVectorStore(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["CreateVectorStore"]; err != nil {
		return "", err
	}
	id := m.next("vs")
	m.VectorStores[id] = nil
	return id, nil
}

func (m *MockClient) AttachFile(ctx context.Context, vectorStoreID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["AttachFile"]; err != nil {
		return err
	}
	files, ok := m.VectorStores[vectorStoreID]
	if !ok {
		return notFoundError("attach file", vectorStoreID)
	}
	m.VectorStores[vectorStoreID] = append(files, fileID)
	return nil
}

func (m *MockClient) DetachFile(ctx context.Context, vectorStoreID, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["DetachFile"]; err != nil {
		return err
	}
	files := m.VectorStores[vectorStoreID]
	kept := files[:0]
	for _, f := range files {
		if f != fileID {
			kept = append(kept, f)
		}
	}
	m.VectorStores[vectorStoreID] = kept
	return nil
}

func (m *MockClient) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["CreateThread"]; err != nil {
		return "", err
	}
	id := m.next("thread")
	m.Threads[id] = nil
	return id, nil
}

func (m *MockClient) DeleteThread(ctx context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["DeleteThread"]; err != nil {
		return err
	}
	delete(m.Threads, threadID)
	return nil
}

func (m *MockClient) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["RunTurn"]; err != nil {
		return nil, err
	}
	m.Turns = append(m.Turns, req)

	reply := fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(req.Content, 100))
	if m.replyFn != nil {
		reply = m.replyFn(req)
	}
	userID := m.next("msg")
	replyID := m.next("msg")
	m.Threads[req.ThreadID] = append(m.Threads[req.ThreadID], userID, replyID)
	return &TurnResult{
		UserMessageID: userID,
		MessageID:     replyID,
		RunID:         m.next("run"),
		Reply:         reply,
	}, nil
}

func notFoundError(op, id string) error {
	return &domain.UpstreamError{Op: op, Status: http.StatusNotFound, Err: fmt.Errorf("no such object: %s", id)}
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
