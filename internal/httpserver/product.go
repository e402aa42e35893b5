package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/repo"
)

type ProductHTTP struct {
	Repo *repo.GormRepo
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
	}

	product, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "product not found")
		}
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"product": product})
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	total, items, err := h.Repo.GetProducts(ctx, offset, limit)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{
		"total":    total,
		"products": items,
	})
}
