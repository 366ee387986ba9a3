// Package repofake provides in-memory versions of the credential store and
// refresh token ledger with the same semantics as the MySQL repositories.
package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/session-auth/internal/model"
	"github.com/iliyamo/session-auth/internal/repository"
	"github.com/iliyamo/session-auth/internal/utils"
)

type Ledger struct {
	lock sync.Mutex
	rows map[string]*model.RefreshToken // id -> row
	now  func() time.Time

	// Err, when set, is returned by every call.
	Err error
}

func NewLedger() *Ledger {
	return &Ledger{rows: make(map[string]*model.RefreshToken), now: time.Now}
}

func (l *Ledger) Create(_ context.Context, userID, token string, expiresAt time.Time) (model.RefreshToken, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return model.RefreshToken{}, l.Err
	}
	now := l.now().UTC()
	rt := &model.RefreshToken{
		ID:        uuid.NewString(),
		Token:     token,
		TokenHash: utils.HashRefreshRaw(token),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.rows[rt.ID] = rt
	return *rt, nil
}

// Put stores a row as is. Tests use it to seed specific states.
func (l *Ledger) Put(rt model.RefreshToken) model.RefreshToken {
	l.lock.Lock()
	defer l.lock.Unlock()
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	if rt.TokenHash == "" {
		rt.TokenHash = utils.HashRefreshRaw(rt.Token)
	}
	cp := rt
	l.rows[rt.ID] = &cp
	return cp
}

func (l *Ledger) FindByUserAndToken(_ context.Context, userID, token string) (model.RefreshToken, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return model.RefreshToken{}, l.Err
	}
	if rt := l.match(userID, token); rt != nil {
		return *rt, nil
	}
	return model.RefreshToken{}, repository.ErrNotFound
}

func (l *Ledger) Invalidate(_ context.Context, userID, token string) (model.RefreshToken, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return model.RefreshToken{}, l.Err
	}
	rt := l.match(userID, token)
	if rt == nil {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	rt.Invalidated = true
	rt.UpdatedAt = l.now().UTC()
	return *rt, nil
}

func (l *Ledger) InvalidateActive(_ context.Context, id string) (bool, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return false, l.Err
	}
	rt, ok := l.rows[id]
	if !ok || rt.Invalidated {
		return false, nil
	}
	rt.Invalidated = true
	rt.UpdatedAt = l.now().UTC()
	return true, nil
}

func (l *Ledger) InvalidateAllForUser(_ context.Context, userID string) (int64, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return 0, l.Err
	}
	var n int64
	for _, rt := range l.rows {
		if rt.UserID == userID && !rt.Invalidated {
			rt.Invalidated = true
			rt.UpdatedAt = l.now().UTC()
			n++
		}
	}
	return n, nil
}

func (l *Ledger) DeleteByID(_ context.Context, id string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return l.Err
	}
	delete(l.rows, id)
	return nil
}

func (l *Ledger) DeleteByToken(_ context.Context, token string) (int64, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Err != nil {
		return 0, l.Err
	}
	var n int64
	for id, rt := range l.rows {
		if rt.Token == token {
			delete(l.rows, id)
			n++
		}
	}
	return n, nil
}

// ByToken returns the row carrying token, if any.
func (l *Ledger) ByToken(token string) (model.RefreshToken, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, rt := range l.rows {
		if rt.Token == token {
			return *rt, true
		}
	}
	return model.RefreshToken{}, false
}

// ForUser returns a snapshot of all rows owned by userID.
func (l *Ledger) ForUser(userID string) []model.RefreshToken {
	l.lock.Lock()
	defer l.lock.Unlock()
	var out []model.RefreshToken
	for _, rt := range l.rows {
		if rt.UserID == userID {
			out = append(out, *rt)
		}
	}
	return out
}

func (l *Ledger) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.rows)
}

func (l *Ledger) match(userID, token string) *model.RefreshToken {
	for _, rt := range l.rows {
		if rt.UserID == userID && rt.Token == token {
			return rt
		}
	}
	return nil
}
