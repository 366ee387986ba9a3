package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/session-auth/internal/model"
	"github.com/iliyamo/session-auth/internal/repository"
)

type Users struct {
	lock    sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string // email -> id
}

func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (u *Users) Create(_ context.Context, email, userName, passwordHash string) (model.User, error) {
	u.lock.Lock()
	defer u.lock.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := u.byEmail[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		UserName:     strings.TrimSpace(userName),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.byID[user.ID] = user
	u.byEmail[email] = user.ID
	return user, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	u.lock.RLock()
	defer u.lock.RUnlock()
	id, ok := u.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u.byID[id], nil
}
