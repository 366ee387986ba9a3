package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/session-auth/internal/handler"
	"github.com/iliyamo/session-auth/internal/middleware"
	"github.com/iliyamo/session-auth/internal/token"
)

// RegisterRoutes registers routes that need no session.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
}

// RegisterAuth mounts the session endpoints under /api. Credential and
// refresh routes sit behind the rate limiter; a nil limiter disables it.
// Revoke and /api/validated require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *token.Codec, rl *middleware.RateLimiter) {
	limit := rl.Middleware()
	bearer := middleware.JWTAuth(codec)

	g := e.Group("/api/auth")
	g.POST("/signup", a.SignUp, limit)
	g.POST("/signin", a.SignIn, limit)
	g.POST("/signout", a.SignOut)
	g.POST("/access-token/new", a.AccessToken, limit)
	g.POST("/refresh-token/rotate", a.Rotate, limit)
	g.POST("/refresh-token/revoke", a.Revoke, bearer)

	e.GET("/api/validated", handler.Validated, bearer)
}
