package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. Exactly one
// row exists per issued refresh token string.
//
// Fields:
//  ID          – UUID primary key.
//  Token       – opaque bearer string handed to the client (secret). Only
//                populated when the caller presented it; never persisted.
//  TokenHash   – SHA-256 hex of Token, the stored lookup key.
//  UserID      – owner of the token.
//  ExpiresAt   – authoritative expiry; the token is dead once now >= ExpiresAt.
//  Invalidated – set on rotation, revocation or reuse detection; never reset.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type RefreshToken struct {
	ID          string    `json:"id"`
	Token       string    `json:"-"`
	TokenHash   string    `json:"-"`
	UserID      string    `json:"userId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Invalidated bool      `json:"invalidated"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Expired reports whether the row is past its expiry at now. A row whose
// ExpiresAt equals now is expired.
func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Usable reports whether the row may still mint access tokens.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Invalidated && !t.Expired(now)
}
