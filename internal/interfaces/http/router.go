package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
}

// NewRouter mounts the approval-workflow routes on a single echo instance.
func NewRouter(h *ApprovalsHandler, m Middleware) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if m.XRay != nil {
		e.Use(m.XRay)
	}
	if m.RequestLogger != nil {
		e.Use(m.RequestLogger)
	}
	if m.Auth != nil {
		e.Use(m.Auth)
	}

	e.POST("/products/:product_id/approvals", h.Create)
	e.GET("/products/:product_id/approvals", h.Get)
	e.POST("/products/:product_id/sections/:section/approve", h.Approve)
	e.POST("/products/:product_id/sections/:section/revoke", h.Revoke)
	e.POST("/products/:product_id/launch", h.Launch)
	e.GET("/products/:product_id/audit", h.Audit)
	return e
}
