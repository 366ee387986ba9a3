// Package token signs and verifies the compact JWTs handed to clients.
// Access and refresh tokens are signed with distinct HMAC secrets so a leak
// of one secret cannot be used to forge the other kind of token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/session-auth/internal/model"
)

const (
	DefaultAccessTTL  = 3 * time.Minute
	DefaultRefreshTTL = 10 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrWeakConfig       = errors.New("access and refresh secrets must be set and distinct")
)

// KeyClass selects which signing secret a token is verified against.
type KeyClass int

const (
	KeyAccess KeyClass = iota
	KeyRefresh
)

func (k KeyClass) String() string {
	switch k {
	case KeyAccess:
		return "access"
	case KeyRefresh:
		return "refresh"
	}
	return fmt.Sprintf("KeyClass(%d)", int(k))
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	User model.Profile `json:"user"`
	jwt.RegisteredClaims
}

// Issued is a signed token together with its embedded expiry.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewCodec builds a Codec. Non-positive TTLs fall back to the defaults.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if accessSecret == "" || refreshSecret == "" || accessSecret == refreshSecret {
		return nil, ErrWeakConfig
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs a short-lived access token for the user.
func (c *Codec) IssueAccessToken(user model.Profile) (Issued, error) {
	return c.issue(user, c.accessSecret, c.accessTTL)
}

// IssueRefreshToken signs the opaque refresh string. Its embedded expiry is
// informational; the ledger row decides whether the token is still honored.
func (c *Codec) IssueRefreshToken(user model.Profile) (Issued, error) {
	return c.issue(user, c.refreshSecret, c.refreshTTL)
}

func (c *Codec) issue(user model.Profile, secret []byte, ttl time.Duration) (Issued, error) {
	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign jwt: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry of raw against the key selected by
// class. When the signature is valid but the token is past its exp claim the
// decoded claims are returned together with ErrExpired.
func (c *Codec) Verify(raw string, class KeyClass) (*Claims, error) {
	var secret []byte
	switch class {
	case KeyAccess:
		secret = c.accessSecret
	case KeyRefresh:
		secret = c.refreshSecret
	default:
		return nil, fmt.Errorf("%w: unknown key class %s", ErrInvalidSignature, class)
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil && tok.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, ErrExpired
	default:
		return nil, ErrInvalidSignature
	}
	if claims.User.ID == "" {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
