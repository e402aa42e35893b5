package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/commercium-dev/storefront/internal/logging"
	"github.com/commercium-dev/storefront/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		return failFrom(c, err)
	}

	return respond(c, http.StatusCreated, echo.Map{"user": user})
}

// Login sets the cookie pair; tokens never appear in the response body.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return failFrom(c, err)
	}

	setAuthCookies(c, res)
	return respond(c, http.StatusOK, echo.Map{"user": res.User})
}

// Refresh accepts the token from the Authorization header or the cookie and
// reissues both cookies. Every verification failure clears the pair.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	raw := bearerToken(c)
	if raw == "" {
		if ck, err := c.Cookie(refreshCookieName); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		clearAuthCookies(c)
		return fail(c, http.StatusUnauthorized, "TOKEN_REFRESH_FAILED", "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		clearAuthCookies(c)
		return failFrom(c, err)
	}

	setAuthCookies(c, res)
	return respond(c, http.StatusOK, echo.Map{"user": res.User})
}

// Logout clears both cookies unconditionally, even when the presented token
// no longer verifies.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if ck, err := c.Cookie(refreshCookieName); err == nil {
		h.Svc.Logout(ctx, ck.Value)
	}

	clearAuthCookies(c)
	return respond(c, http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	idStr, _ := c.Get("user_id").(string)
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
	}

	user, err := h.Svc.CurrentUser(ctx, userID)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"user": user})
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
