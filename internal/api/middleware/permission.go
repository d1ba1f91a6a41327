package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/service"
	"github.com/fabricwh/rbac-api/internal/pkg/metrics"
)

// OwnerFunc extracts the owning user id of the addressed resource.
type OwnerFunc func(c echo.Context) string

// RequirePermission admits identities holding key.
func RequirePermission(key domain.PermissionKey) echo.MiddlewareFunc {
	return gate(domain.RequireOne, func(id *domain.Identity, _ echo.Context) error {
		return service.RequireOne(id, key)
	})
}

// RequireAnyPermission admits identities holding at least one of keys.
func RequireAnyPermission(keys ...domain.PermissionKey) echo.MiddlewareFunc {
	return gate(domain.RequireAny, func(id *domain.Identity, _ echo.Context) error {
		return service.RequireAny(id, keys...)
	})
}

// RequireAllPermissions admits identities holding every key.
func RequireAllPermissions(keys ...domain.PermissionKey) echo.MiddlewareFunc {
	return gate(domain.RequireAll, func(id *domain.Identity, _ echo.Context) error {
		return service.RequireAll(id, keys...)
	})
}

// RequireOwnershipOrPermission admits the resource owner or identities holding key.
func RequireOwnershipOrPermission(key domain.PermissionKey, owner OwnerFunc) echo.MiddlewareFunc {
	return gate(domain.RequireOwnership, func(id *domain.Identity, c echo.Context) error {
		return service.RequireOwnershipOr(id, key, owner(c))
	})
}

// ParamOwner reads the owner id from a path parameter.
func ParamOwner(name string) OwnerFunc {
	return func(c echo.Context) string {
		return c.Param(name)
	}
}

func gate(mode domain.RequirementMode, check func(*domain.Identity, echo.Context) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := domain.IdentityFromContext(c.Request().Context())
			if err := check(id, c); err != nil {
				metrics.AuthorizationDecisionsTotal.WithLabelValues(string(mode), "deny").Inc()
				return err
			}
			metrics.AuthorizationDecisionsTotal.WithLabelValues(string(mode), "allow").Inc()
			return next(c)
		}
	}
}
