package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/internal/pkg/metrics"
)

// Authenticate resolves the bearer token into an identity and stores it in
// the request context. Every failure is an Authentication error.
func Authenticate(resolver ports.IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				countAuthentication(err)
				return err
			}

			req := c.Request()
			id, err := resolver.Resolve(req.Context(), token)
			countAuthentication(err)
			if err != nil {
				return err
			}

			c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header. An empty header
// yields "" so the resolver reports missing_token.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrTokenInvalid
	}
	return strings.TrimSpace(parts[1]), nil
}

func countAuthentication(err error) {
	result := "ok"
	if err != nil {
		result = string(domain.ReasonInvalidToken)
		if de, ok := domain.AsError(err); ok && de.Reason != "" {
			result = string(de.Reason)
		}
	}
	metrics.AuthenticationsTotal.WithLabelValues(result).Inc()
}
