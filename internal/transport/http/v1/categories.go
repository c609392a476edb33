package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

type topicRequest struct {
	Name string `json:"name"`
}

type categoryTopicRequest struct {
	CategoryID string `json:"category_id"`
	TopicID    string `json:"topic_id"`
}

type assistantCategoryRequest struct {
	AssistantID string `json:"assistant_id"`
	CategoryID  string `json:"category_id"`
}

// CreateCategory creates a category.
// POST /categories
func (h *Handler) CreateCategory(c echo.Context) error {
	var req domain.CategoryInput
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	cat, err := h.service.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, cat)
}

// GET /categories
func (h *Handler) ListCategories(c echo.Context) error {
	categories, err := h.service.ListCategories(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(categories))
}

// GET /categories/defaults
func (h *Handler) ListDefaultCategories(c echo.Context) error {
	categories, err := h.service.ListDefaultCategories(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(categories))
}

// GET /categories/:id
func (h *Handler) GetCategory(c echo.Context) error {
	cat, err := h.service.GetCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, cat)
}

// PUT /categories/:id
func (h *Handler) UpdateCategory(c echo.Context) error {
	var req domain.CategoryInput
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	cat, err := h.service.UpdateCategory(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, cat)
}

// DELETE /categories/:id
func (h *Handler) DeleteCategory(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteCategory(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}

// ListCategoryTopicsOf lists the topics linked to a category.
// GET /categories/:id/topics
func (h *Handler) ListCategoryTopicsOf(c echo.Context) error {
	topics, err := h.service.ListTopicsForCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(topics))
}

// POST /topics
func (h *Handler) CreateTopic(c echo.Context) error {
	var req topicRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	t, err := h.service.CreateTopic(c.Request().Context(), req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, t)
}

// GET /topics
func (h *Handler) ListTopics(c echo.Context) error {
	topics, err := h.service.ListTopics(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(topics))
}

// GET /topics/:id
func (h *Handler) GetTopic(c echo.Context) error {
	t, err := h.service.GetTopic(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, t)
}

// DELETE /topics/:id
func (h *Handler) DeleteTopic(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteTopic(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}

// POST /category-topics
func (h *Handler) CreateCategoryTopic(c echo.Context) error {
	var req categoryTopicRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	l, err := h.service.CreateCategoryTopic(c.Request().Context(), req.CategoryID, req.TopicID)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, l)
}

// GET /category-topics?category_id=
func (h *Handler) ListCategoryTopics(c echo.Context) error {
	links, err := h.service.ListCategoryTopics(c.Request().Context(), c.QueryParam("category_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(links))
}

// DELETE /category-topics/:id
func (h *Handler) DeleteCategoryTopic(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteCategoryTopic(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}

// POST /assistant-categories
func (h *Handler) CreateAssistantCategory(c echo.Context) error {
	var req assistantCategoryRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	l, err := h.service.CreateAssistantCategory(c.Request().Context(), req.AssistantID, req.CategoryID)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, l)
}

// GET /assistant-categories?assistant_id=
func (h *Handler) ListAssistantCategories(c echo.Context) error {
	links, err := h.service.ListAssistantCategories(c.Request().Context(), c.QueryParam("assistant_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(links))
}

// DELETE /assistant-categories/:id
func (h *Handler) DeleteAssistantCategory(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteAssistantCategory(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}
