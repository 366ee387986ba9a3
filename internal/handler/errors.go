package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/session-auth/internal/session"
)

type errorBody struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func badBody(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
}

// ErrorHandler renders every error as {"status":"error","kind","message"}.
// The wrapped cause is only exposed outside production. Messages never
// carry token strings or password hashes.
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body, cause := describe(err)
		if !production && cause != nil {
			body.Error = cause.Error()
		}

		if code >= http.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
			if hub := sentry.CurrentHub(); hub.Client() != nil {
				hub.CaptureException(err)
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, body)
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}

func describe(err error) (int, errorBody, error) {
	var se *session.Error
	if errors.As(err, &se) {
		return se.Status, errorBody{Status: "error", Kind: string(se.Kind), Message: se.Message}, se.Err
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		kind := strings.ReplaceAll(http.StatusText(he.Code), " ", "")
		return he.Code, errorBody{Status: "error", Kind: kind, Message: msg}, he.Internal
	}

	return http.StatusInternalServerError,
		errorBody{Status: "error", Kind: string(session.KindInternal), Message: "Internal Server Error"},
		err
}
