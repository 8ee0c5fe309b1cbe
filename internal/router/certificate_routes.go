package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ekklesia-certificates/internal/handler"
	"github.com/iliyamo/ekklesia-certificates/internal/middleware"
	"github.com/iliyamo/ekklesia-certificates/internal/model"
)

// RegisterPublicValidation exposes certificate validation to anyone holding a
// printed QR code.  limiter throttles brute-force attempts; pass nil to
// disable it.
func RegisterPublicValidation(e *echo.Echo, h *handler.CertificateHandler, limiter echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if limiter != nil {
		mw = append(mw, limiter)
	}
	e.GET("/v1/certificates/validate", h.Validate, mw...)
	// Path printed in QR codes; see certificate.ValidatePath.
	e.GET("/validate-certificate", h.Validate, mw...)
}

// RegisterCertificates registers the tenant routes.  Every route requires a
// JWT; reads are open to church staff, writes are restricted by role.  cache
// wraps the GET routes and may be nil.
func RegisterCertificates(e *echo.Echo, h *handler.CertificateHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RolePastor, model.RoleSecretary)
	signers := middleware.RequireRole(model.RoleAdmin, model.RolePastor)

	reads := []echo.MiddlewareFunc{staff}
	if cache != nil {
		reads = append(reads, cache)
	}

	g := e.Group("/v1/certificates", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Issue, staff)
	g.GET("", h.List, reads...)
	g.GET("/:id", h.Get, reads...)
	g.GET("/:id/export", h.Export, reads...)
	g.GET("/:id/qrcode", h.QRCode, reads...)
	g.POST("/:id/update-hash", h.UpdateHash, signers)
	g.POST("/:id/revoke", h.Revoke, signers)

	e.GET("/v1/members/me/certificates", h.MyCertificates,
		middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleMember, model.RoleAdmin, model.RolePastor, model.RoleSecretary))
}
