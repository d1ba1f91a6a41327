package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/pkg/logger"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string              `json:"error"`
	Reason string              `json:"reason,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps each domain error kind to exactly one HTTP status code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "reason"?, "errors"?}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		reqLog := logger.WithRequestID(log, c.Response().Header().Get(echo.HeaderXRequestID))
		code, body := resolveError(err, reqLog, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	de, ok := domain.AsError(err)
	if !ok {
		// Echo's own errors (unknown route, method not allowed, oversized body).
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
		}
		de = domain.NewInternal(err)
	}

	switch de.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest, errorResponse{Error: de.Message, Errors: fieldErrors(de)}

	case domain.KindAuthentication:
		msg, reason := authenticationMessage(de.Reason)
		return http.StatusUnauthorized, errorResponse{Error: msg, Reason: reason}

	case domain.KindAuthorization:
		// The required keys stay in the log.
		ev := log.Debug().Str("method", c.Request().Method).Str("path", c.Path())
		if de.Requirement != nil {
			ev = ev.Str("requirement", de.Requirement.String())
		}
		ev.Msg("access denied")
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}

	case domain.KindNotFound:
		return http.StatusNotFound, errorResponse{Error: de.Message}

	case domain.KindConflict:
		return http.StatusConflict, errorResponse{Error: de.Message, Errors: fieldErrors(de)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func fieldErrors(de *domain.Error) []domain.FieldError {
	if len(de.Fields) > 0 {
		return de.Fields
	}
	if de.Field != "" {
		return []domain.FieldError{{Field: de.Field, Message: de.Message}}
	}
	return nil
}

// authenticationMessage keeps token failures uniform. A token for a vanished
// user reads the same as a forged one.
func authenticationMessage(reason domain.AuthReason) (string, string) {
	switch reason {
	case domain.ReasonMissingToken:
		return "authentication required", string(reason)
	case domain.ReasonExpiredToken:
		return "token expired", string(reason)
	case domain.ReasonBadCredentials:
		return "invalid credentials", string(reason)
	case domain.ReasonInactive:
		return "account is not active", string(reason)
	default:
		return "invalid token", string(domain.ReasonInvalidToken)
	}
}
