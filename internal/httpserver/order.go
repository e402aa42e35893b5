package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/commercium-dev/storefront/internal/repo"
)

type OrderHTTP struct {
	Repo *repo.GormRepo
}

// ListOrders returns the authenticated user's orders, newest first.
func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	idStr, _ := c.Get("user_id").(string)
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, lErr := strconv.Atoi(c.QueryParam("limit"))
	if lErr != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := h.Repo.ListOrders(ctx, userID, limit, offset)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"orders": orders})
}
