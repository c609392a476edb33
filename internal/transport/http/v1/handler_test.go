package v1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/adapter/llm"
	"github.com/euskoog/openai-assistants-link/internal/config"
	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/service"
	"github.com/euskoog/openai-assistants-link/policy"
	"github.com/euskoog/openai-assistants-link/tests/helpers"
)

type testServer struct {
	e     *echo.Echo
	agent *agentclient.MockClient
	llm   *llm.MockClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.AppMode = config.ModeMock
	agent := agentclient.NewMockClient()
	llmClient := llm.NewMockClient()
	svc := service.New(helpers.NewTestStore(t), agent, llmClient, cfg, policyEngine, nil)

	e := echo.New()
	NewHandler(svc, nil).RegisterRoutes(e.Group("/core"))
	return &testServer{e: e, agent: agent, llm: llmClient}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createAssistant(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/core/assistants", `{"name":"Support","instructions":"Help."}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return gjson.GetBytes(rec.Body.Bytes(), "data.id").String()
}

func TestAssistantRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createAssistant(t)
	require.NotEmpty(t, id)

	rec := s.do(t, http.MethodGet, "/core/assistants", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.Bytes()
	assert.True(t, gjson.GetBytes(body, "success").Bool())
	assert.Equal(t, gjson.Null, gjson.GetBytes(body, "error").Type)
	assert.Equal(t, int64(1), gjson.GetBytes(body, "data.#").Int())
	assert.NotEmpty(t, gjson.GetBytes(body, "data.0.metadata.openai.assistantId").String())

	rec = s.do(t, http.MethodPut, "/core/assistants/"+id, `{"name":"Billing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Billing", gjson.GetBytes(rec.Body.Bytes(), "data.name").String())

	rec = s.do(t, http.MethodDelete, "/core/assistants/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.GetBytes(rec.Body.Bytes(), "data.deleted").Bool())

	// Deleted rows stay readable by id but leave the listing.
	rec = s.do(t, http.MethodGet, "/core/assistants/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.GetBytes(rec.Body.Bytes(), "data.deleted_at").Exists())

	rec = s.do(t, http.MethodGet, "/core/assistants", "")
	assert.Equal(t, `[]`, gjson.GetBytes(rec.Body.Bytes(), "data").Raw)
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing name", http.MethodPost, "/core/assistants", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/core/assistants", `{"name":`, http.StatusBadRequest},
		{"unknown assistant", http.MethodGet, "/core/assistants/missing", "", http.StatusNotFound},
		{"unknown conversation", http.MethodGet, "/core/conversations/missing", "", http.StatusNotFound},
		{"dangling reference", http.MethodPost, "/core/assistant-categories", `{"assistant_id":"a","category_id":"c"}`, http.StatusNotFound},
		{"missing conversation id", http.MethodGet, "/core/analytics/conversation", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := rec.Body.Bytes()
			assert.False(t, gjson.GetBytes(body, "success").Bool())
			assert.Equal(t, gjson.Null, gjson.GetBytes(body, "data").Type)
			assert.NotEmpty(t, gjson.GetBytes(body, "error").String())
		})
	}
}

func TestChatRoute(t *testing.T) {
	s := newTestServer(t)
	id := s.createAssistant(t)

	rec := s.do(t, http.MethodPost, "/core/assistants/"+id+"/chat", `{"message":{"content":"hello","metadata":{"channel":"web"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.Bytes()
	convID := gjson.GetBytes(body, "data.conversation_id").String()
	require.NotEmpty(t, convID)
	assert.Equal(t, "ASSISTANT", gjson.GetBytes(body, "data.message.role").String())
	assert.False(t, gjson.GetBytes(body, "data.evaluation").Exists())

	rec = s.do(t, http.MethodGet, "/core/conversations/"+convID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.Bytes()
	assert.Equal(t, int64(2), gjson.GetBytes(body, "data.#").Int())
	assert.Equal(t, "web", gjson.GetBytes(body, "data.0.metadata.channel").String())

	rec = s.do(t, http.MethodGet, "/core/assistants/"+id+"/conversations", "")
	assert.Equal(t, convID, gjson.GetBytes(rec.Body.Bytes(), "data.0.id").String())

	s.agent.FailOn("RunTurn", &domain.UpstreamError{Op: "run", Status: http.StatusTooManyRequests, Err: errors.New("rate limited")})
	rec = s.do(t, http.MethodPost, "/core/assistants/"+id+"/chat", `{"conversation_id":"`+convID+`","message":{"content":"again"}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream service unavailable", gjson.GetBytes(rec.Body.Bytes(), "error").String())
	assert.NotContains(t, rec.Body.String(), "rate limited")

	rec = s.do(t, http.MethodGet, "/core/conversations/"+convID, "")
	assert.Equal(t, int64(2), gjson.GetBytes(rec.Body.Bytes(), "data.messages.#").Int())
}

func TestCategoryRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/core/categories", `{"name":"Billing","type":"DEFAULT"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	catID := gjson.GetBytes(rec.Body.Bytes(), "data.id").String()

	rec = s.do(t, http.MethodPost, "/core/topics", `{"name":"Refunds"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	topicID := gjson.GetBytes(rec.Body.Bytes(), "data.id").String()

	rec = s.do(t, http.MethodPost, "/core/topics", `{"name":"Refunds"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/core/category-topics", fmt.Sprintf(`{"category_id":%q,"topic_id":%q}`, catID, topicID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/core/categories/"+catID+"/topics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Refunds", gjson.GetBytes(rec.Body.Bytes(), "data.0.name").String())

	rec = s.do(t, http.MethodGet, "/core/categories/defaults", "")
	assert.Equal(t, int64(1), gjson.GetBytes(rec.Body.Bytes(), "data.#").Int())

	rec = s.do(t, http.MethodGet, "/core/category-topics?category_id="+catID, "")
	assert.Equal(t, topicID, gjson.GetBytes(rec.Body.Bytes(), "data.0.topic_id").String())

	id := s.createAssistant(t)
	rec = s.do(t, http.MethodGet, "/core/assistants/"+id+"/categories", "")
	assert.Equal(t, "Billing", gjson.GetBytes(rec.Body.Bytes(), "data.0.name").String())
}

func TestDocumentRoutes(t *testing.T) {
	s := newTestServer(t)
	assistantID := s.createAssistant(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "Handbook"))
	part, err := w.CreateFormFile("file", "handbook.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("refunds take five days"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/core/datasources/document", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := rec.Body.Bytes()
	dsID := gjson.GetBytes(body, "data.id").String()
	assert.Equal(t, "Handbook", gjson.GetBytes(body, "data.name").String())
	assert.Equal(t, "handbook.txt", gjson.GetBytes(body, "data.metadata.filename").String())
	assert.Equal(t, int64(22), gjson.GetBytes(body, "data.metadata.openai.bytes").Int())

	rec = s.do(t, http.MethodPost, "/core/assistant-datasources", fmt.Sprintf(`{"assistant_id":%q,"datasource_id":%q}`, assistantID, dsID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	linkID := gjson.GetBytes(rec.Body.Bytes(), "data.id").String()

	rec = s.do(t, http.MethodGet, "/core/assistant-datasources/"+assistantID, "")
	assert.Equal(t, "Handbook", gjson.GetBytes(rec.Body.Bytes(), "data.0.datasource.name").String())

	rec = s.do(t, http.MethodDelete, "/core/assistant-datasources/"+linkID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/core/datasources/document", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=x")
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/core/datasources", `{"name":"Orders","type":"ENDPOINT","metadata":{"url":"https://example.com"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://example.com", gjson.GetBytes(rec.Body.Bytes(), "data.metadata.url").String())
}

func TestAnalyticsRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createAssistant(t)

	rec := s.do(t, http.MethodPost, "/core/categories", `{"name":"Billing","type":"DEFAULT"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	s.llm.Enqueue(`{"category":"Billing","classification":"Answered","sentiment":0.2}`)
	rec = s.do(t, http.MethodPost, "/core/assistants/"+id+"/chat", `{"message":{"content":"charge?"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	convID := gjson.GetBytes(rec.Body.Bytes(), "data.conversation_id").String()
	replyID := gjson.GetBytes(rec.Body.Bytes(), "data.message.id").String()
	assert.NotEmpty(t, gjson.GetBytes(rec.Body.Bytes(), "data.message.category_id").String())

	rec = s.do(t, http.MethodGet, "/core/analytics/conversation?conversation_id="+convID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, gjson.GetBytes(rec.Body.Bytes(), "data.assistant.id").String())

	rec = s.do(t, http.MethodPost, "/core/analytics/categories", fmt.Sprintf(`{"assistant_ids":[%q]}`, id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Billing", gjson.GetBytes(rec.Body.Bytes(), "data.0.name").String())

	// Category-only labels have no topic row to count.
	rec = s.do(t, http.MethodPost, "/core/analytics/topics/count", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[]`, gjson.GetBytes(rec.Body.Bytes(), "data").Raw)

	rec = s.do(t, http.MethodPost, "/core/analytics/topic/messages", `{"category_id":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.llm.Enqueue(`{"category":"Billing","classification":"Not Answered"}`)
	rec = s.do(t, http.MethodPost, "/core/messages/"+replyID+"/evaluate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "categorized", gjson.GetBytes(rec.Body.Bytes(), "data.outcome").String())
	assert.Equal(t, "Not Answered", gjson.GetBytes(rec.Body.Bytes(), "data.classification").String())
}

func TestFailHidesServerErrors(t *testing.T) {
	h := NewHandler(nil, nil)
	tests := []struct {
		err  error
		want string
	}{
		{errors.New(`pq: relation "assistants" does not exist`), "internal server error"},
		{&domain.UpstreamError{Op: "run", Err: errors.New("401 invalid api key sk-abc")}, "upstream service unavailable"},
		{&domain.NotFoundError{Entity: "assistant", ID: "x"}, (&domain.NotFoundError{Entity: "assistant", ID: "x"}).Error()},
	}
	for _, tt := range tests {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, h.fail(c, tt.err))
		assert.Equal(t, tt.want, gjson.GetBytes(rec.Body.Bytes(), "error").String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Required("name"), http.StatusBadRequest},
		{&domain.NotFoundError{Entity: "assistant", ID: "x"}, http.StatusNotFound},
		{fmt.Errorf("failed to create: %w", &domain.ReferenceError{Entity: "assistant", ID: "x"}), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrConflict), http.StatusConflict},
		{&domain.UpstreamError{Op: "run", Err: errors.New("down")}, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
