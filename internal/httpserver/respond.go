package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/commercium-dev/storefront/internal/logging"
	"github.com/commercium-dev/storefront/internal/service"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"success": false, "error": errorBody{Code: code, Message: message}})
}

// failFrom maps the service error taxonomy onto HTTP. Anything outside the
// taxonomy is an internal error and its detail stays in the logs.
func failFrom(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrConflict):
		return fail(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrAccountDisabled):
		return fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "account is disabled")
	case errors.Is(err, service.ErrNotAuthenticated):
		return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
	case errors.Is(err, service.ErrTokenRefresh):
		return fail(c, http.StatusUnauthorized, "TOKEN_REFRESH_FAILED", "could not refresh tokens")
	default:
		logging.FromContext(c.Request().Context()).Error("internal error", "error", err)
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
