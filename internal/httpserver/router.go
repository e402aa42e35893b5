package httpserver

import (
	"github.com/labstack/echo/v4"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CartHandler    *CartHTTP
	ProductHandler *ProductHTTP
	OrderHandler   *OrderHTTP
	AuthMW         *AuthMiddleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, d.AuthMW.RequireAuth)

	carts := v1.Group("/carts")
	carts.POST("", d.CartHandler.ResolveCart)
	carts.POST("/guest", d.CartHandler.CreateGuestCart)
	carts.GET("/:id", d.CartHandler.GetCart)
	carts.POST("/:id/items", d.CartHandler.AddItem)
	carts.PATCH("/:id/items/:item_id", d.CartHandler.SetItemQuantity)
	carts.DELETE("/:id/items/:item_id", d.CartHandler.RemoveItem)
	carts.POST("/:id/extend", d.CartHandler.ExtendExpiration)
	carts.POST("/:id/checkout", d.CartHandler.Checkout)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/orders", d.OrderHandler.ListOrders, d.AuthMW.RequireAuth)
}
