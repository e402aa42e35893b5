package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/commercium-dev/storefront/internal/service"
	"github.com/commercium-dev/storefront/internal/tokens"
)

type AuthMiddleware struct {
	Tokens *tokens.Service
	Auth   *service.AuthService
}

// RequireAuth validates the access cookie and, when it has merely expired,
// rotates the pair in place via the refresh cookie. Any other failure clears
// both cookies: the client must re-authenticate rather than retry with a
// poisoned credential.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(accessCookieName)
		if err != nil || accessCookie.Value == "" {
			return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "missing access token")
		}

		claims, err := m.Tokens.VerifyAccessToken(accessCookie.Value)
		if err == nil {
			setUserContext(c, claims)
			return next(c)
		}

		if !errors.Is(err, tokens.ErrExpired) {
			clearAuthCookies(c)
			return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "invalid access token")
		}

		refreshCookie, rErr := c.Cookie(refreshCookieName)
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "refresh token missing")
		}

		res, refErr := m.Auth.Refresh(c.Request().Context(), refreshCookie.Value)
		if refErr != nil {
			clearAuthCookies(c)
			return fail(c, http.StatusUnauthorized, "TOKEN_REFRESH_FAILED", "could not refresh tokens")
		}

		setAuthCookies(c, res)

		newClaims, pErr := m.Tokens.VerifyAccessToken(res.AccessToken)
		if pErr != nil {
			clearAuthCookies(c)
			return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "new access token invalid")
		}
		setUserContext(c, newClaims)
		return next(c)
	}
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set("user_id", claims.Subject)
	c.Set("role", claims.Role)
}
