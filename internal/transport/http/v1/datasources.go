package v1

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

type assistantDatasourceRequest struct {
	AssistantID  string `json:"assistant_id"`
	DatasourceID string `json:"datasource_id"`
}

// CreateDocument uploads a document datasource.
// POST /datasources/document (multipart: file, name, description)
func (h *Handler) CreateDocument(c echo.Context) error {
	up, err := readUpload(c)
	if err != nil {
		return h.fail(c, err)
	}
	d, err := h.service.CreateDocument(c.Request().Context(), up)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, d)
}

// UpdateDocument replaces the file of a document datasource.
// PUT /datasources/document/:id (multipart: file, name, description)
func (h *Handler) UpdateDocument(c echo.Context) error {
	up, err := readUpload(c)
	if err != nil {
		return h.fail(c, err)
	}
	d, err := h.service.UpdateDocument(c.Request().Context(), c.Param("id"), up)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, d)
}

// CreateDatasource creates an ENDPOINT or FUNCTION datasource.
// POST /datasources
func (h *Handler) CreateDatasource(c echo.Context) error {
	var req domain.DatasourceInput
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	d, err := h.service.CreateDatasource(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, d)
}

// GET /datasources
func (h *Handler) ListDatasources(c echo.Context) error {
	datasources, err := h.service.ListDatasources(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(datasources))
}

// GET /datasources/:id
func (h *Handler) GetDatasource(c echo.Context) error {
	d, err := h.service.GetDatasource(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, d)
}

// PUT /datasources/:id
func (h *Handler) UpdateDatasource(c echo.Context) error {
	var req domain.DatasourceInput
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	d, err := h.service.UpdateDatasource(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, d)
}

// DELETE /datasources/:id
func (h *Handler) DeleteDatasource(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteDatasource(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}

// POST /assistant-datasources
func (h *Handler) CreateAssistantDatasource(c echo.Context) error {
	var req assistantDatasourceRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid request body")
	}
	l, err := h.service.CreateAssistantDatasource(c.Request().Context(), req.AssistantID, req.DatasourceID)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusCreated, l)
}

// GET /assistant-datasources/:assistant_id
func (h *Handler) ListAssistantDatasources(c echo.Context) error {
	links, err := h.service.ListAssistantDatasources(c.Request().Context(), c.Param("assistant_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, nonNil(links))
}

// DELETE /assistant-datasources/:id
func (h *Handler) DeleteAssistantDatasource(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.DeleteAssistantDatasource(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return respond(c, http.StatusOK, deleted{ID: id, Deleted: true})
}

func readUpload(c echo.Context) (domain.DocumentUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return domain.DocumentUpload{}, domain.Required("file")
	}
	f, err := fh.Open()
	if err != nil {
		return domain.DocumentUpload{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.DocumentUpload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return domain.DocumentUpload{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
