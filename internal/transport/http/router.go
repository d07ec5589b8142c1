package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/farmmart/backend/internal/handlers"
	"github.com/farmmart/backend/internal/metrics"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	OrderHandler   *handlers.OrderHandler
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	auth := handlers.RequireAuth(d.JWTSecret)

	owned := v1.Group("/products", auth)
	owned.POST("", d.ProductHandler.CreateProduct)
	owned.PATCH("/:id", d.ProductHandler.PatchProduct)
	owned.DELETE("/:id", d.ProductHandler.DeleteProduct)

	orders := v1.Group("/orders", auth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PATCH("/:id/status", d.OrderHandler.UpdateStatus)
}
