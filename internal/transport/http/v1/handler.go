// Package v1 provides the core HTTP handlers of the assistants link API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		logger:  logger.With(zap.String("component", "http")),
	}
}

// RegisterRoutes registers the core routes on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	assistants := g.Group("/assistants")
	assistants.POST("", h.CreateAssistant)
	assistants.GET("", h.ListAssistants)
	assistants.GET("/:id", h.GetAssistant)
	assistants.PUT("/:id", h.UpdateAssistant)
	assistants.DELETE("/:id", h.DeleteAssistant)
	assistants.POST("/:id/chat", h.Chat)
	assistants.GET("/:id/conversations", h.ListAssistantConversations)
	assistants.GET("/:id/categories", h.ListAssistantCandidateCategories)

	categories := g.Group("/categories")
	categories.POST("", h.CreateCategory)
	categories.GET("", h.ListCategories)
	categories.GET("/defaults", h.ListDefaultCategories)
	categories.GET("/:id", h.GetCategory)
	categories.PUT("/:id", h.UpdateCategory)
	categories.DELETE("/:id", h.DeleteCategory)
	categories.GET("/:id/topics", h.ListCategoryTopicsOf)

	topics := g.Group("/topics")
	topics.POST("", h.CreateTopic)
	topics.GET("", h.ListTopics)
	topics.GET("/:id", h.GetTopic)
	topics.DELETE("/:id", h.DeleteTopic)

	categoryTopics := g.Group("/category-topics")
	categoryTopics.POST("", h.CreateCategoryTopic)
	categoryTopics.GET("", h.ListCategoryTopics)
	categoryTopics.DELETE("/:id", h.DeleteCategoryTopic)

	assistantCategories := g.Group("/assistant-categories")
	assistantCategories.POST("", h.CreateAssistantCategory)
	assistantCategories.GET("", h.ListAssistantCategories)
	assistantCategories.DELETE("/:id", h.DeleteAssistantCategory)

	datasources := g.Group("/datasources")
	datasources.POST("/document", h.CreateDocument)
	datasources.PUT("/document/:id", h.UpdateDocument)
	datasources.POST("", h.CreateDatasource)
	datasources.GET("", h.ListDatasources)
	datasources.GET("/:id", h.GetDatasource)
	datasources.PUT("/:id", h.UpdateDatasource)
	datasources.DELETE("/:id", h.DeleteDatasource)

	assistantDatasources := g.Group("/assistant-datasources")
	assistantDatasources.POST("", h.CreateAssistantDatasource)
	assistantDatasources.GET("/:assistant_id", h.ListAssistantDatasources)
	assistantDatasources.DELETE("/:id", h.DeleteAssistantDatasource)

	conversations := g.Group("/conversations")
	conversations.GET("/:id", h.GetConversation)
	conversations.GET("/:id/messages", h.ListConversationMessages)

	g.POST("/messages/:id/evaluate", h.EvaluateMessage)

	analytics := g.Group("/analytics")
	analytics.GET("/conversation", h.ConversationAnalytics)
	analytics.POST("/categories", h.CategoriesAnalytics)
	analytics.POST("/topics/count", h.TopicCountsAnalytics)
	analytics.POST("/topic/messages", h.TopicMessagesAnalytics)
}

// Response is the envelope of every core route.
type Response struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

type deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	msg := publicMessage(status, err)
	return c.JSON(status, Response{Success: false, Error: &msg})
}

// publicMessage hides the detail of server-side failures from clients. The
// full error is only logged.
func publicMessage(status int, err error) string {
	switch {
	case status == http.StatusBadGateway:
		return "upstream service unavailable"
	case status >= http.StatusInternalServerError:
		return "internal server error"
	}
	return err.Error()
}

func (h *Handler) badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, Response{Success: false, Error: &msg})
}

// statusFor maps the domain error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidLabel):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
