package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for audit log operations. Handlers are thin:
// bind request, call service, render response. No business logic lives here.
type Handler struct {
	service AuditService
}

// NewHandler creates a new audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// listResponse is the JSON body of the audit listing.
type listResponse struct {
	Entries []AuditEntry   `json:"entries"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"perPage"`
	Stats   *ActivityStats `json:"stats"`
}

// List returns recent audit entries with aggregate stats
// (GET /api/v1/audit?page=&user=). Restricted to administrators via route
// middleware.
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	ctx := c.Request().Context()
	entries, total, err := h.service.List(ctx, c.QueryParam("user"), page)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(ctx)
	if err != nil {
		return err
	}

	if entries == nil {
		entries = []AuditEntry{}
	}
	return c.JSON(http.StatusOK, listResponse{
		Entries: entries,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Stats:   stats,
	})
}
