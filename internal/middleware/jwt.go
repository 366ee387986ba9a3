package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/session-auth/internal/token"
)

// JWTAuth validates a Bearer access token with the access key class and
// stores the subject under "user_id".
// Refresh tokens are rejected here because they are signed with a different
// secret.
func JWTAuth(codec *token.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			claims, err := codec.Verify(raw, token.KeyAccess)
			if err != nil {
				// expired access tokens are rejected like any other bad token
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token").SetInternal(err)
			}
			c.Set(ctxUserID, claims.User.ID)
			return next(c)
		}
	}
}

func bearer(header string) (string, bool) {
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
