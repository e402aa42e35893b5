package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/commercium-dev/storefront/internal/logging"
	"github.com/commercium-dev/storefront/internal/service"
)

type CartHTTP struct {
	Svc *service.CartService
}

type resolveCartRequest struct {
	SessionID *string    `json:"session_id"`
	UserID    *uuid.UUID `json:"user_id"`
}

type addItemRequest struct {
	ProductID  uuid.UUID         `json:"product_id"`
	VariantID  *uuid.UUID        `json:"variant_id"`
	Quantity   uint              `json:"quantity"`
	Attributes map[string]string `json:"attributes"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type extendRequest struct {
	Hours int `json:"hours"`
}

// ResolveCart answers 201 when a cart was created for the identity and 200
// when an existing one matched.
func (h *CartHTTP) ResolveCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.resolve")

	var req resolveCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("resolve_cart_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	cart, created, err := h.Svc.ResolveCart(ctx, service.ResolveInput{
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	if err != nil {
		return failFrom(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return respond(c, status, echo.Map{"cart": cart})
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id")
	}

	view, err := h.Svc.GetCart(ctx, cartID)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, view)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id")
	}

	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}
	if req.ProductID == uuid.Nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "product_id required")
	}

	item, err := h.Svc.AddItem(ctx, cartID, req.ProductID, req.VariantID, req.Quantity, req.Attributes)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusCreated, echo.Map{"item": item})
}

func (h *CartHTTP) SetItemQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id")
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid item id")
	}

	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_quantity_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}
	if req.Quantity <= 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be greater than zero, use delete to remove an item")
	}

	item, err := h.Svc.SetItemQuantity(ctx, cartID, itemID, uint(req.Quantity))
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"item": item})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id")
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid item id")
	}

	item, err := h.Svc.RemoveItem(ctx, cartID, itemID)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"item": item})
}

func (h *CartHTTP) CreateGuestCart(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.Svc.CreateGuestCart(ctx)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusCreated, res)
}

func (h *CartHTTP) ExtendExpiration(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.extend")

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id")
	}

	var req extendRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("extend_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}

	exp, err := h.Svc.ExtendExpiration(ctx, cartID, req.Hours)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"expires_at": exp})
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart id")
	}

	res, err := h.Svc.Checkout(ctx, cartID)
	if err != nil {
		return failFrom(c, err)
	}
	return respond(c, http.StatusCreated, res)
}
