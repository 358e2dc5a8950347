package controllers

import (
	"github.com/gin-gonic/gin"

	"go-college/web/db"
	"go-college/web/middleware"
)

type Routes struct {
	Auth     *Auth
	Payments *Payments
	Health   *Health

	Secret  string
	Users   middleware.UserLoader
	Limiter gin.HandlerFunc // nil disables rate limiting
}

// Register mounts the API. The webhook is outside the rate limiter since the
// provider retries in bursts and authenticates every call by signature.
func (rt Routes) Register(r gin.IRouter) {
	limited := []gin.HandlerFunc{}
	if rt.Limiter != nil {
		limited = append(limited, rt.Limiter)
	}
	requireAuth := middleware.RequireAuth(rt.Secret, rt.Users)

	r.GET("/health", rt.Health.Check)

	auth := r.Group("/api/auth", limited...)
	auth.POST("/signup", rt.Auth.Signup)
	auth.POST("/login", rt.Auth.Login)
	auth.GET("/me", requireAuth, rt.Auth.Me)

	r.POST("/api/payments/webhook", rt.Payments.Webhook)

	pay := r.Group("/api/payments", limited...)
	pay.Use(requireAuth)
	pay.POST("/create-order", rt.Payments.CreateOrder)
	pay.POST("/verify", rt.Payments.Verify)
	pay.GET("/my-payments", rt.Payments.MyPayments)
	pay.GET("/:orderId", rt.Payments.Get)
	pay.GET("/:orderId/receipt.png", rt.Payments.Receipt)
	pay.POST("/:orderId/refund", middleware.Authorize(db.RoleAdmin), rt.Payments.Refund)
}
