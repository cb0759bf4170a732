package server

import (
	"retailorders/internal/config"
	"retailorders/internal/handler"
	"retailorders/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// ルーティングに必要なハンドラとミドルウェアの材料
type Handlers struct {
	Auth    *handler.AuthHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	Contact *handler.ContactHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, limiter echomw.RateLimiterStore, deps Deps) {
	authMW := middleware.AuthJWT(cfg)
	adminMW := middleware.AdminRoleGuard()

	//auth
	e.POST("/auth/register/", h.Auth.Register)
	e.POST("/auth/login/", h.Auth.Login)

	//public
	e.GET("/products/", h.Product.List)
	e.GET("/products/:id/", h.Product.Detail)
	e.GET("/stores/", h.Product.ListStores)
	e.GET("/categories/", h.Product.ListCategories)
	e.GET("/contacts/", h.Contact.List)

	//authenticated
	e.POST("/contacts/", h.Contact.Create, authMW)

	//admin
	admin := []echo.MiddlewareFunc{authMW, adminMW}
	e.POST("/products/", h.Product.Create, admin...)
	e.POST("/products/import/", h.Product.Import, admin...)
	e.PUT("/products/:id/", h.Product.Update, admin...)
	e.PATCH("/products/:id/", h.Product.Update, admin...)
	e.DELETE("/products/:id/", h.Product.Delete, admin...)
	e.POST("/stores/", h.Product.CreateStore, admin...)
	e.POST("/categories/", h.Product.CreateCategory, admin...)

	//orders
	//add_to_cartだけはレート制限を認証チェックより前に置く
	e.POST("/orders/add_to_cart/", h.Order.AddToCart,
		middleware.OptionalAuthJWT(cfg),
		middleware.RateLimit(limiter, deps.Log),
		middleware.RequireUser(),
	)

	orders := e.Group("/orders", authMW)
	orders.GET("/", h.Order.List)
	orders.GET("/:id/", h.Order.Detail)
	orders.POST("/:id/remove_from_cart/", h.Order.RemoveFromCart)
	orders.POST("/:id/checkout/", h.Order.Checkout)
}
