package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/ports"
)

type AuditHandler struct {
	service ports.AuditService
}

func NewAuditHandler(service ports.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List handles GET /v1/audit-logs. Entries are newest first.
//
// @Summary      List audit log entries
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        action   query     string  false  "Action, e.g. role.deleted"
// @Param        actorId  query     string  false  "Acting user ID"
// @Param        page     query     int     false  "Page number"  default(1)
// @Param        limit    query     int     false  "Items per page (max 100)"  default(10)
// @Success      200      {object}  listResponse[auditEntryResponse]
// @Failure      403      {object}  errorResponse
// @Router       /v1/audit-logs [get]
func (h *AuditHandler) List(c echo.Context) error {
	filter, err := auditFilterQuery(c)
	if err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse[auditEntryResponse]{
		Message:    "audit log loaded",
		Data:       toAuditResponses(page.Items),
		Pagination: page.Pagination,
	})
}
