package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/commercium-dev/storefront/internal/service"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

func createCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		MaxAge:   int(time.Until(expTime).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func deleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func setAuthCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(createCookie(accessCookieName, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(createCookie(refreshCookieName, res.RefreshToken, "/", res.RefreshExp))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(deleteCookie(accessCookieName, "/"))
	c.SetCookie(deleteCookie(refreshCookieName, "/"))
}
