package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/session-auth/internal/model"
	"github.com/iliyamo/session-auth/internal/utils"
)

// TokenRepo is the refresh token ledger. Raw tokens are never stored; rows
// are keyed by their SHA-256 digest. Every state change is a single UPDATE
// or DELETE so concurrent requests are arbitrated per row by MySQL.
// The DSN must set clientFoundRows=true so RowsAffected counts matched rows.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const tokenColumns = "id, token_hash, user_id, expires_at, invalidated, created_at, updated_at"

// Create inserts a new, non-invalidated ledger row.
func (r *TokenRepo) Create(ctx context.Context, userID, token string, expiresAt time.Time) (model.RefreshToken, error) {
	now := time.Now().UTC()
	rt := model.RefreshToken{
		ID:        uuid.NewString(),
		Token:     token,
		TokenHash: utils.HashRefreshRaw(token),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, invalidated, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		rt.ID, rt.TokenHash, rt.UserID, rt.ExpiresAt, false, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("insert refresh token: %w", err)
	}
	return rt, nil
}

// FindByUserAndToken returns the row owned by userID with the given token string.
func (r *TokenRepo) FindByUserAndToken(ctx context.Context, userID, token string) (model.RefreshToken, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE user_id=? AND token_hash=? LIMIT 1",
		userID, utils.HashRefreshRaw(token))
	rt, err := scanToken(row)
	if err != nil {
		return model.RefreshToken{}, err
	}
	rt.Token = token
	return rt, nil
}

// Invalidate flags the row matching both userID and token and returns it.
func (r *TokenRepo) Invalidate(ctx context.Context, userID, token string) (model.RefreshToken, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET invalidated=1, updated_at=? WHERE user_id=? AND token_hash=?",
		time.Now().UTC(), userID, utils.HashRefreshRaw(token))
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("invalidate refresh token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.RefreshToken{}, fmt.Errorf("invalidate refresh token: %w", err)
	} else if n != 1 {
		return model.RefreshToken{}, ErrNotFound
	}
	return r.FindByUserAndToken(ctx, userID, token)
}

// InvalidateActive flags a single still-active row. It reports false when the
// row was already invalidated or is gone, which means another request won.
func (r *TokenRepo) InvalidateActive(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET invalidated=1, updated_at=? WHERE id=? AND invalidated=0",
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("invalidate active refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("invalidate active refresh token: %w", err)
	}
	return n == 1, nil
}

// InvalidateAllForUser flags every active row of the user and returns how
// many rows changed. Rows that were already invalidated are not counted.
func (r *TokenRepo) InvalidateAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET invalidated=1, updated_at=? WHERE user_id=? AND invalidated=0",
		time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("invalidate user refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByID removes one row. A missing row is not an error.
func (r *TokenRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id=?", id); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteByToken removes every row carrying the token string. Zero matches is fine.
func (r *TokenRepo) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", utils.HashRefreshRaw(token))
	if err != nil {
		return 0, fmt.Errorf("delete refresh token: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired purges rows whose expiry is at or before the cutoff.
func (r *TokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at<=?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func scanToken(row *sql.Row) (model.RefreshToken, error) {
	var rt model.RefreshToken
	err := row.Scan(&rt.ID, &rt.TokenHash, &rt.UserID, &rt.ExpiresAt, &rt.Invalidated, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("query refresh token: %w", err)
	}
	return rt, nil
}
