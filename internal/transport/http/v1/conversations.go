package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

type assistantIDsRequest struct {
	AssistantIDs []string `json:"assistant_ids"`
}

// GetConversation returns a conversation with its messages.
// GET /conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.service.GetConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, conv)
}

// GET /conversations/:id/messages
func (h *Handler) ListConversationMessages(c echo.Context) error {
	messages, err := h.service.ListMessages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(messages))
}

// EvaluateMessage re-runs the evaluator on an assistant reply.
// POST /messages/:id/evaluate
func (h *Handler) EvaluateMessage(c echo.Context) error {
	eval, err := h.service.EvaluateMessage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, eval)
}

// ConversationAnalytics returns a conversation with its messages and labels.
// GET /analytics/conversation?conversation_id=
func (h *Handler) ConversationAnalytics(c echo.Context) error {
	id := c.QueryParam("conversation_id")
	if id == "" {
		return h.fail(c, domain.Required("conversation_id"))
	}
	conv, err := h.service.GetConversation(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, conv)
}

// POST /analytics/categories
func (h *Handler) CategoriesAnalytics(c echo.Context) error {
	var req assistantIDsRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	rows, err := h.service.CategoriesForAssistants(c.Request().Context(), req.AssistantIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(rows))
}

// POST /analytics/topics/count
func (h *Handler) TopicCountsAnalytics(c echo.Context) error {
	var req assistantIDsRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	counts, err := h.service.TopicCounts(c.Request().Context(), req.AssistantIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(counts))
}

// POST /analytics/topic/messages
func (h *Handler) TopicMessagesAnalytics(c echo.Context) error {
	var req domain.TopicMessageQuery
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	messages, err := h.service.TopicMessages(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(messages))
}
