package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/session-auth/internal/middleware"
	"github.com/iliyamo/session-auth/internal/session"
	"github.com/iliyamo/session-auth/internal/token"
)

// RefreshCookie is the cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

const requestTimeout = 5 * time.Second

// AuthHandler exposes the session manager over HTTP.
type AuthHandler struct {
	Sessions   *session.Manager
	RefreshTTL time.Duration
	Production bool
}

func NewAuthHandler(sessions *session.Manager, refreshTTL time.Duration, production bool) *AuthHandler {
	return &AuthHandler{Sessions: sessions, RefreshTTL: refreshTTL, Production: production}
}

type signUpReq struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a user. It does not open a session.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	user, err := h.Sessions.SignUp(ctx, req.Email, req.UserName, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": user})
}

// SignIn returns an access token in the body and sets the refresh cookie.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, res.RefreshToken)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": res.AccessToken.Token, "user": res.User})
}

// SignOut always succeeds and always clears the cookie.
func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	h.clearRefreshCookie(c)
	if _, err := h.Sessions.SignOut(ctx, refreshFromCookie(c)); err != nil {
		log.Warn().Err(err).Msg("signout: ledger delete failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Signed out successfully"})
}

// AccessToken mints a new access token from the refresh cookie.
func (h *AuthHandler) AccessToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Sessions.Refresh(ctx, refreshFromCookie(c))
	if err != nil {
		h.clearOnTokenFailure(c, err)
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": res.AccessToken.Token, "user": res.User})
}

// Rotate is AccessToken plus a fresh refresh cookie; the presented token is retired.
func (h *AuthHandler) Rotate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Sessions.Rotate(ctx, refreshFromCookie(c))
	if err != nil {
		h.clearOnTokenFailure(c, err)
		return err
	}
	h.setRefreshCookie(c, *res.RefreshToken)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": res.AccessToken.Token, "user": res.User})
}

// Revoke invalidates the refresh cookie of the authenticated user.
func (h *AuthHandler) Revoke(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	row, err := h.Sessions.Revoke(ctx, middleware.UserID(c), refreshFromCookie(c))
	if err != nil {
		return err
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Refresh token revoked", "refreshToken": row})
}

// Validated answers only when JWTAuth accepted the access token.
func Validated(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "AccessGranted"})
}

func refreshFromCookie(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

// clearOnTokenFailure drops a cookie that can never succeed again.
func (h *AuthHandler) clearOnTokenFailure(c echo.Context, err error) {
	switch session.KindOf(err) {
	case session.KindTokenExpired, session.KindTokenReuse, session.KindTokenNotFound, session.KindInvalidSignature:
		h.clearRefreshCookie(c)
	}
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, t token.Issued) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    t.Token,
		Path:     "/",
		MaxAge:   int(h.RefreshTTL / time.Second),
		Expires:  t.ExpiresAt,
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
	})
}
