package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// Sortable query fields mapped to storage field names.
var (
	userSortFields = map[string]string{
		"username":  "username",
		"email":     "email",
		"fullname":  "fullname",
		"status":    "status",
		"role":      "role",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
	roleSortFields = map[string]string{
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
)

// pageQuery reads ?page and ?limit. Non-numeric values and pages past
// domain.MaxPage are Validation errors; an oversized limit is clamped by
// domain.NewPageRequest.
func pageQuery(c echo.Context) (domain.PageRequest, error) {
	page, err := intQuery(c, "page")
	if err != nil {
		return domain.PageRequest{}, err
	}
	if page > domain.MaxPage {
		return domain.PageRequest{}, domain.NewFieldValidation("page", fmt.Sprintf("page must be at most %d", domain.MaxPage))
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.NewPageRequest(page, limit), nil
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.NewFieldValidation(name, name+" must be a positive integer")
	}
	return n, nil
}

// dateQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func dateQuery(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewFieldValidation(name, name+" must be a date")
}

func sortQuery(c echo.Context, allowed map[string]string, fallback domain.SortField) []domain.SortField {
	return domain.ParseSort(c.QueryParam("sortBy"), c.QueryParam("order"), allowed, fallback)
}

func userFilterQuery(c echo.Context) (domain.UserFilter, error) {
	page, err := pageQuery(c)
	if err != nil {
		return domain.UserFilter{}, err
	}
	from, err := dateQuery(c, "createdFrom")
	if err != nil {
		return domain.UserFilter{}, err
	}
	to, err := dateQuery(c, "createdTo")
	if err != nil {
		return domain.UserFilter{}, err
	}

	f := domain.UserFilter{
		Search:      c.QueryParam("search"),
		Status:      domain.UserStatus(c.QueryParam("status")),
		Role:        c.QueryParam("role"),
		Gender:      domain.Gender(c.QueryParam("gender")),
		CreatedFrom: from,
		CreatedTo:   to,
		Page:        page,
		Sort:        sortQuery(c, userSortFields, domain.SortField{Field: "created_at", Desc: true}),
	}

	switch f.Status {
	case "", domain.StatusActive, domain.StatusInactive, domain.StatusSuspended, domain.StatusDeleted:
	default:
		return domain.UserFilter{}, domain.NewFieldValidation("status", "status must be ACTIVE, INACTIVE or SUSPENDED")
	}
	switch f.Gender {
	case "", domain.GenderMale, domain.GenderFemale, domain.GenderOther:
	default:
		return domain.UserFilter{}, domain.NewFieldValidation("gender", "gender must be MALE, FEMALE or OTHER")
	}
	return f, nil
}

func roleFilterQuery(c echo.Context) (domain.RoleFilter, error) {
	page, err := pageQuery(c)
	if err != nil {
		return domain.RoleFilter{}, err
	}
	return domain.RoleFilter{
		Search: c.QueryParam("search"),
		Page:   page,
		Sort:   sortQuery(c, roleSortFields, domain.SortField{Field: "name"}),
	}, nil
}

func auditFilterQuery(c echo.Context) (domain.AuditFilter, error) {
	page, err := pageQuery(c)
	if err != nil {
		return domain.AuditFilter{}, err
	}
	return domain.AuditFilter{
		Action:  domain.AuditAction(c.QueryParam("action")),
		ActorID: c.QueryParam("actorId"),
		Page:    page,
	}, nil
}
