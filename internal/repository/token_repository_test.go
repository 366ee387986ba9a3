package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/session-auth/internal/utils"
)

func newTokenRepoWithMock(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewTokenRepo(db), mock
}

func tokenRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "token_hash", "user_id", "expires_at", "invalidated", "created_at", "updated_at"})
}

func TestTokenRepo_Create(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	exp := time.Now().Add(10 * time.Minute)

	mock.ExpectExec(`^INSERT INTO refresh_tokens \(id, token_hash, user_id, expires_at, invalidated, created_at, updated_at\)`).
		WithArgs(sqlmock.AnyArg(), utils.HashRefreshRaw("tok"), "u1", exp.UTC(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rt, err := repo.Create(context.Background(), "u1", "tok", exp)
	require.NoError(t, err)
	assert.NotEmpty(t, rt.ID)
	assert.Equal(t, "u1", rt.UserID)
	assert.False(t, rt.Invalidated)
	assert.True(t, rt.ExpiresAt.Equal(exp))
	assert.Equal(t, utils.HashRefreshRaw("tok"), rt.TokenHash)
}

func TestTokenRepo_Create_DBError(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	mock.ExpectExec(`^INSERT INTO refresh_tokens`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "u1", "tok", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert refresh token: db down")
}

func TestTokenRepo_FindByUserAndToken(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	now := time.Now().UTC()
	q := regexp.QuoteMeta("SELECT " + tokenColumns + " FROM refresh_tokens WHERE user_id=? AND token_hash=? LIMIT 1")

	mock.ExpectQuery(q).WithArgs("u1", utils.HashRefreshRaw("tok")).
		WillReturnRows(tokenRows().AddRow("id-1", utils.HashRefreshRaw("tok"), "u1", now.Add(time.Minute), true, now, now))

	rt, err := repo.FindByUserAndToken(context.Background(), "u1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "id-1", rt.ID)
	assert.True(t, rt.Invalidated)
	assert.Equal(t, "tok", rt.Token)
}

func TestTokenRepo_FindByUserAndToken_NotFound(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	mock.ExpectQuery(`^SELECT .* FROM refresh_tokens`).WithArgs("u1", utils.HashRefreshRaw("missing")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserAndToken(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_Invalidate(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET invalidated=1, updated_at=? WHERE user_id=? AND token_hash=?")).
		WithArgs(sqlmock.AnyArg(), "u1", utils.HashRefreshRaw("tok")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`^SELECT .* FROM refresh_tokens`).WithArgs("u1", utils.HashRefreshRaw("tok")).
		WillReturnRows(tokenRows().AddRow("id-1", utils.HashRefreshRaw("tok"), "u1", now, true, now, now))

	rt, err := repo.Invalidate(context.Background(), "u1", "tok")
	require.NoError(t, err)
	assert.True(t, rt.Invalidated)
}

func TestTokenRepo_Invalidate_NoMatch(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	mock.ExpectExec(`^UPDATE refresh_tokens SET invalidated=1`).
		WithArgs(sqlmock.AnyArg(), "u1", utils.HashRefreshRaw("other")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Invalidate(context.Background(), "u1", "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_InvalidateActive(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	q := regexp.QuoteMeta("UPDATE refresh_tokens SET invalidated=1, updated_at=? WHERE id=? AND invalidated=0")

	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), "id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), "id-1").WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.InvalidateActive(context.Background(), "id-1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.InvalidateActive(context.Background(), "id-1")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestTokenRepo_InvalidateAllForUser(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET invalidated=1, updated_at=? WHERE user_id=? AND invalidated=0")).
		WithArgs(sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.InvalidateAllForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestTokenRepo_Deletes(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	cutoff := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE id=?")).
		WithArgs("id-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE token_hash=?")).
		WithArgs(utils.HashRefreshRaw("tok")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at<=?")).
		WithArgs(cutoff.UTC()).WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, repo.DeleteByID(context.Background(), "id-1"))

	n, err := repo.DeleteByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestTokenRepo_DeleteByToken_DBError(t *testing.T) {
	repo, mock := newTokenRepoWithMock(t)
	mock.ExpectExec(`^DELETE FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs(utils.HashRefreshRaw("tok")).WillReturnError(errors.New("db err"))

	_, err := repo.DeleteByToken(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db err")
}
