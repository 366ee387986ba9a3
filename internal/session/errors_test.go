package session

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("outer: %w", wrap(ErrPersistence, cause))

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTokenReuse)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("foreign")))
}

func TestTokenReuseIsDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrTokenReuse, ErrTokenNotFound)
	assert.NotErrorIs(t, ErrTokenReuse, ErrTokenExpired)
	assert.Equal(t, http.StatusUnauthorized, ErrTokenReuse.Status)
	assert.Equal(t, http.StatusNotFound, ErrInvalidCredentials.Status)
	assert.Equal(t, http.StatusBadRequest, ErrRevokeFailed.Status)
}
