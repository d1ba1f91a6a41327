package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// currentIdentity returns the identity attached by the Authenticate
// middleware. Its absence means the route was mounted without it.
func currentIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return nil, domain.NewAuthentication(domain.ReasonMissingToken, "authentication required")
	}
	return id, nil
}

// bind decodes the request into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	return c.Validate(req)
}
