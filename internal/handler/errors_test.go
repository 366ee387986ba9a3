package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/session-auth/internal/session"
)

func render(t *testing.T, production bool, err error) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/x", nil), rec)
	ErrorHandler(production)(err, c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_SessionErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{session.ErrInvalidCredentials, http.StatusNotFound, "InvalidCredentials"},
		{session.ErrMissingToken, http.StatusBadRequest, "MissingToken"},
		{session.ErrTokenExpired, http.StatusUnauthorized, "TokenExpired"},
		{session.ErrTokenReuse, http.StatusUnauthorized, "TokenReuse"},
		{session.ErrRevokeFailed, http.StatusBadRequest, "RevokeFailed"},
		{session.ErrEmailTaken, http.StatusConflict, "EmailTaken"},
		{fmt.Errorf("outer: %w", session.ErrTokenNotFound), http.StatusUnauthorized, "TokenNotFound"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			code, body := render(t, false, tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tc.kind, body["kind"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestErrorHandler_CauseOnlyOutsideProduction(t *testing.T) {
	err := &session.Error{Kind: session.KindPersistence, Status: 500, Message: "Internal Server Error", Err: errors.New("dial tcp: refused")}

	code, body := render(t, false, err)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "dial tcp: refused", body["error"])

	_, body = render(t, true, err)
	_, has := body["error"]
	assert.False(t, has)
}

func TestErrorHandler_ForeignError(t *testing.T) {
	code, body := render(t, true, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "InternalError", body["kind"])
	assert.Equal(t, "Internal Server Error", body["message"])
}

func TestErrorHandler_EchoError(t *testing.T) {
	code, body := render(t, false, echo.NewHTTPError(http.StatusMethodNotAllowed))
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "MethodNotAllowed", body["kind"])
	assert.Equal(t, "Method Not Allowed", body["message"])
}
