package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// CreateAssistant creates an assistant and its upstream counterpart.
// POST /assistants
func (h *Handler) CreateAssistant(c echo.Context) error {
	var req domain.AssistantInput
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	a, err := h.service.CreateAssistant(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, a)
}

// ListAssistants lists active assistants.
// GET /assistants
func (h *Handler) ListAssistants(c echo.Context) error {
	assistants, err := h.service.ListAssistants(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(assistants))
}

// GetAssistant gets an assistant by id.
// GET /assistants/:id
func (h *Handler) GetAssistant(c echo.Context) error {
	a, err := h.service.GetAssistant(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, a)
}

// UpdateAssistant updates name, instructions, model or metadata.
// PUT /assistants/:id
func (h *Handler) UpdateAssistant(c echo.Context) error {
	var req domain.AssistantInput
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	a, err := h.service.UpdateAssistant(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, a)
}

// DeleteAssistant soft-deletes an assistant.
// DELETE /assistants/:id
func (h *Handler) DeleteAssistant(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteAssistant(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}

// Chat runs one chat turn.
// POST /assistants/:id/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	resp, err := h.service.Chat(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, resp)
}

// ListAssistantConversations lists the conversations of an assistant.
// GET /assistants/:id/conversations
func (h *Handler) ListAssistantConversations(c echo.Context) error {
	conversations, err := h.service.ListConversations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(conversations))
}

// ListAssistantCandidateCategories lists the categories offered to the
// evaluator for the assistant.
// GET /assistants/:id/categories
func (h *Handler) ListAssistantCandidateCategories(c echo.Context) error {
	categories, err := h.service.ListCategoriesForAssistant(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(categories))
}

// nonNil renders an empty list as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
