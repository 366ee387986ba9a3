package middleware

import "github.com/labstack/echo/v4"

const ctxUserID = "user_id"

// UserID returns the authenticated subject, or "" on unauthenticated routes.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}
