// Package session owns the refresh-token lifecycle: sign-in, access token
// refresh, rotation, sign-out and explicit revocation. It composes the token
// codec with the refresh token ledger and is the only place that decides
// how a presented refresh token changes state.
package session

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/session-auth/internal/model"
	"github.com/iliyamo/session-auth/internal/queue"
	"github.com/iliyamo/session-auth/internal/repository"
	"github.com/iliyamo/session-auth/internal/token"
	"github.com/iliyamo/session-auth/internal/utils"
)

// Ledger is the durable record of issued refresh tokens.
type Ledger interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) (model.RefreshToken, error)
	FindByUserAndToken(ctx context.Context, userID, token string) (model.RefreshToken, error)
	Invalidate(ctx context.Context, userID, token string) (model.RefreshToken, error)
	InvalidateActive(ctx context.Context, id string) (bool, error)
	InvalidateAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) (int64, error)
}

// CredentialStore persists user records.
type CredentialStore interface {
	Create(ctx context.Context, email, userName, passwordHash string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Notifier receives security events. Failures are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, ev queue.SecurityEvent) error
}

// SignInResult carries everything the HTTP layer needs after a sign-in.
type SignInResult struct {
	User         model.Profile
	AccessToken  token.Issued
	RefreshToken token.Issued
	Row          model.RefreshToken
}

// RefreshResult is returned by Refresh and Rotate. RefreshToken and Row are
// only set by Rotate.
type RefreshResult struct {
	User         model.Profile
	AccessToken  token.Issued
	RefreshToken *token.Issued
	Row          *model.RefreshToken
}

// SignOutResult reports whether a token was presented and how many ledger
// rows were removed.
type SignOutResult struct {
	HadToken bool
	Deleted  int64
}

type Manager struct {
	users      CredentialStore
	ledger     Ledger
	codec      *token.Codec
	notifiers  []Notifier
	bcryptCost int
	now        func() time.Time
	log        zerolog.Logger
}

func NewManager(users CredentialStore, ledger Ledger, codec *token.Codec) *Manager {
	return &Manager{
		users:      users,
		ledger:     ledger,
		codec:      codec,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		log:        log.Logger.With().Str("component", "session").Logger(),
	}
}

// WithBcryptCost sets the cost used when hashing new passwords.
func (m *Manager) WithBcryptCost(cost int) *Manager {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		m.bcryptCost = cost
	}
	return m
}

func (m *Manager) WithNotifiers(n ...Notifier) *Manager {
	m.notifiers = append(m.notifiers, n...)
	return m
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) WithLogger(l zerolog.Logger) *Manager {
	m.log = l
	return m
}

// SignUp registers a user and returns the sanitized profile.
func (m *Manager) SignUp(ctx context.Context, email, userName, password string) (model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	userName = strings.TrimSpace(userName)
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Profile{}, invalidInput("email is invalid")
	}
	if userName == "" {
		return model.Profile{}, invalidInput("userName is required")
	}
	if n := len(password); n < 5 || n > 32 {
		return model.Profile{}, invalidInput("password must be 5 to 32 characters")
	}

	hash, err := utils.HashPassword(password, m.bcryptCost)
	if err != nil {
		return model.Profile{}, wrap(ErrInternal, err)
	}
	u, err := m.users.Create(ctx, email, userName, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		return model.Profile{}, ErrEmailTaken
	}
	if err != nil {
		return model.Profile{}, wrap(ErrPersistence, err)
	}
	return u.Profile(), nil
}

// SignIn checks credentials and opens a new session. Unknown email and wrong
// password produce the same error.
func (m *Manager) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return SignInResult{}, ErrInvalidCredentials
	}

	u, err := m.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		return SignInResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return SignInResult{}, wrap(ErrPersistence, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return SignInResult{}, ErrInvalidCredentials
	}

	profile := u.Profile()
	access, err := m.codec.IssueAccessToken(profile)
	if err != nil {
		return SignInResult{}, wrap(ErrInternal, err)
	}
	refresh, row, err := m.openRefresh(ctx, profile)
	if err != nil {
		return SignInResult{}, err
	}

	m.log.Info().Str("user_id", u.ID).Str("token_id", row.ID).Msg("signed in")
	return SignInResult{User: profile, AccessToken: access, RefreshToken: refresh, Row: row}, nil
}

// Refresh mints a new access token from a presented refresh token. The
// refresh token itself is left untouched.
func (m *Manager) Refresh(ctx context.Context, presented string) (RefreshResult, error) {
	_, claims, err := m.admit(ctx, presented)
	if err != nil {
		return RefreshResult{}, err
	}
	access, err := m.codec.IssueAccessToken(claims.User)
	if err != nil {
		return RefreshResult{}, wrap(ErrInternal, err)
	}
	return RefreshResult{User: claims.User, AccessToken: access}, nil
}

// Rotate behaves like Refresh but also retires the presented token and
// issues a sibling. The sibling row is written before the presented row is
// retired, so a failed write leaves the presented token usable. Of two
// concurrent rotations of the same token exactly one wins; the other drops
// its sibling and is handled as reuse.
func (m *Manager) Rotate(ctx context.Context, presented string) (RefreshResult, error) {
	row, claims, err := m.admit(ctx, presented)
	if err != nil {
		return RefreshResult{}, err
	}

	access, err := m.codec.IssueAccessToken(claims.User)
	if err != nil {
		return RefreshResult{}, wrap(ErrInternal, err)
	}
	refresh, next, err := m.openRefresh(ctx, claims.User)
	if err != nil {
		return RefreshResult{}, err
	}

	won, err := m.ledger.InvalidateActive(ctx, row.ID)
	if err != nil || !won {
		if derr := m.ledger.DeleteByID(ctx, next.ID); derr != nil {
			m.log.Error().Err(derr).Str("token_id", next.ID).Msg("drop unused sibling refresh token")
		}
		if err != nil {
			return RefreshResult{}, wrap(ErrPersistence, err)
		}
		row.Invalidated = true
		return RefreshResult{}, m.settle(ctx, &row)
	}

	m.log.Info().Str("user_id", claims.User.ID).Str("from", row.ID).Str("to", next.ID).Msg("refresh token rotated")
	return RefreshResult{User: claims.User, AccessToken: access, RefreshToken: &refresh, Row: &next}, nil
}

// SignOut deletes every ledger row carrying the presented token. A missing
// token is not an error.
func (m *Manager) SignOut(ctx context.Context, presented string) (SignOutResult, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return SignOutResult{}, nil
	}
	n, err := m.ledger.DeleteByToken(ctx, presented)
	if err != nil {
		return SignOutResult{HadToken: true}, wrap(ErrPersistence, err)
	}
	return SignOutResult{HadToken: true, Deleted: n}, nil
}

// Revoke invalidates the presented token on behalf of its authenticated owner.
func (m *Manager) Revoke(ctx context.Context, userID, presented string) (model.RefreshToken, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return model.RefreshToken{}, ErrMissingToken
	}
	row, err := m.ledger.Invalidate(ctx, userID, presented)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RefreshToken{}, ErrRevokeFailed
	}
	if err != nil {
		return model.RefreshToken{}, wrap(ErrPersistence, err)
	}
	m.log.Info().Str("user_id", userID).Str("token_id", row.ID).Msg("refresh token revoked")
	return row, nil
}

// admit verifies the presented token, loads its ledger row and runs the
// state transition. It returns the row only when the token is usable.
func (m *Manager) admit(ctx context.Context, presented string) (model.RefreshToken, *token.Claims, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return model.RefreshToken{}, nil, ErrMissingToken
	}

	// An expired JWT still identifies its owner; the ledger row decides.
	claims, err := m.codec.Verify(presented, token.KeyRefresh)
	if err != nil && !errors.Is(err, token.ErrExpired) {
		return model.RefreshToken{}, nil, wrap(ErrInvalidSignature, err)
	}
	if claims == nil || claims.User.ID == "" {
		return model.RefreshToken{}, nil, wrap(ErrInvalidSignature, token.ErrInvalidSignature)
	}

	row, err := m.ledger.FindByUserAndToken(ctx, claims.User.ID, presented)
	var current *model.RefreshToken
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return model.RefreshToken{}, nil, wrap(ErrPersistence, err)
	default:
		current = &row
	}

	if err := m.settle(ctx, current); err != nil {
		return model.RefreshToken{}, nil, err
	}
	return row, claims, nil
}

// settle runs Decide on row, applies the resulting mutations and returns
// the failure for any non-usable decision.
func (m *Manager) settle(ctx context.Context, row *model.RefreshToken) error {
	tr := Decide(row, m.now())
	revoked, err := m.apply(ctx, tr.Mutations)
	if err != nil {
		return wrap(ErrPersistence, err)
	}
	if tr.Decision == DecisionReuse {
		m.reportReuse(ctx, *row, revoked)
	}
	if f := tr.Decision.failure(); f != nil {
		return f
	}
	return nil
}

func (m *Manager) apply(ctx context.Context, muts []Mutation) (int64, error) {
	var revoked int64
	for _, mu := range muts {
		switch mu.Kind {
		case MutationDeleteByID:
			if err := m.ledger.DeleteByID(ctx, mu.ID); err != nil {
				return revoked, err
			}
		case MutationInvalidateAllForUser:
			n, err := m.ledger.InvalidateAllForUser(ctx, mu.UserID)
			if err != nil {
				return revoked, err
			}
			revoked += n
		}
	}
	return revoked, nil
}

func (m *Manager) openRefresh(ctx context.Context, profile model.Profile) (token.Issued, model.RefreshToken, error) {
	refresh, err := m.codec.IssueRefreshToken(profile)
	if err != nil {
		return token.Issued{}, model.RefreshToken{}, wrap(ErrInternal, err)
	}
	row, err := m.ledger.Create(ctx, profile.ID, refresh.Token, m.now().UTC().Add(m.codec.RefreshTTL()))
	if err != nil {
		return token.Issued{}, model.RefreshToken{}, wrap(ErrPersistence, err)
	}
	return refresh, row, nil
}

func (m *Manager) reportReuse(ctx context.Context, row model.RefreshToken, revoked int64) {
	m.log.Warn().
		Str("user_id", row.UserID).
		Str("token_id", row.ID).
		Int64("revoked", revoked).
		Msg("refresh token reuse detected, all user sessions revoked")

	ev := queue.SecurityEvent{
		Type:       queue.EventTokenReuse,
		UserID:     row.UserID,
		TokenID:    row.ID,
		Revoked:    revoked,
		OccurredAt: m.now().UTC().Format(time.RFC3339),
	}
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			m.log.Error().Err(err).Str("user_id", row.UserID).Msg("security notifier failed")
		}
	}
}
