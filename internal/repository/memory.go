package repository

import (
	"context"
	"sync"
	"time"

	"github.com/authcode/authcode-go/internal/model"
)

// MemoryStore is an in-process Store for development and tests. Transactions
// are serialised and roll back by restoring a snapshot.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

type memData struct {
	users      []model.User
	codes      []model.EmailCode
	nextUserID int64
	nextCodeID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{}, now: time.Now}
}

func (s *MemoryStore) Users() UserStore { return memUsers{view: memView{store: s, locking: true}} }

func (s *MemoryStore) Codes() CodeStore { return memCodes{view: memView{store: s, locking: true}} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(memTx{store: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// memTx is the Store handed to WithinTx callbacks; the lock is already held.
type memTx struct {
	store *MemoryStore
}

func (t memTx) Users() UserStore { return memUsers{view: memView{store: t.store}} }

func (t memTx) Codes() CodeStore { return memCodes{view: memView{store: t.store}} }

func (t memTx) WithinTx(_ context.Context, fn func(tx Store) error) error { return fn(t) }

type memView struct {
	store   *MemoryStore
	locking bool
}

func (v memView) with(fn func(d *memData) error) error {
	if v.locking {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.data)
}

type memUsers struct{ view memView }

func (u memUsers) Create(_ context.Context, user *model.User) error {
	return u.view.with(func(d *memData) error {
		for _, existing := range d.users {
			if existing.Email == user.Email {
				return ErrDuplicateEmail
			}
		}
		d.nextUserID++
		now := u.view.store.now().UTC()
		user.ID = d.nextUserID
		user.CreatedAt = now
		user.UpdatedAt = now
		d.users = append(d.users, *user)
		return nil
	})
}

func (u memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return u.find(func(user *model.User) bool { return user.Email == email })
}

func (u memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return u.find(func(user *model.User) bool { return user.ID == id })
}

func (u memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return u.view.with(func(d *memData) error {
		for i := range d.users {
			if d.users[i].ID == id {
				d.users[i].PasswordHash = hash
				d.users[i].UpdatedAt = u.view.store.now().UTC()
				return nil
			}
		}
		return ErrUserNotFound
	})
}

func (u memUsers) find(match func(*model.User) bool) (*model.User, error) {
	var found *model.User
	err := u.view.with(func(d *memData) error {
		for i := range d.users {
			if match(&d.users[i]) {
				user := d.users[i]
				found = &user
				return nil
			}
		}
		return ErrUserNotFound
	})
	return found, err
}

type memCodes struct{ view memView }

func (c memCodes) Latest(_ context.Context, email string, purpose model.Purpose) (*model.EmailCode, error) {
	var latest *model.EmailCode
	err := c.view.with(func(d *memData) error {
		for i := range d.codes {
			code := &d.codes[i]
			if code.Email != email || code.Purpose != purpose {
				continue
			}
			if latest == nil || !code.CreatedAt.Before(latest.CreatedAt) {
				latest = code
			}
		}
		if latest == nil {
			return ErrCodeNotFound
		}
		cp := copyCode(*latest)
		latest = &cp
		return nil
	})
	return latest, err
}

func (c memCodes) InvalidateActive(_ context.Context, email string, purpose model.Purpose, now time.Time) error {
	return c.view.with(func(d *memData) error {
		for i := range d.codes {
			code := &d.codes[i]
			if code.Email == email && code.Purpose == purpose && code.ActiveAt(now) {
				used := now
				code.UsedAt = &used
			}
		}
		return nil
	})
}

func (c memCodes) Create(_ context.Context, code *model.EmailCode) error {
	return c.view.with(func(d *memData) error {
		d.nextCodeID++
		code.ID = d.nextCodeID
		d.codes = append(d.codes, copyCode(*code))
		return nil
	})
}

func (c memCodes) Update(_ context.Context, code *model.EmailCode) error {
	return c.view.with(func(d *memData) error {
		for i := range d.codes {
			if d.codes[i].ID == code.ID {
				d.codes[i].UsedAt = copyTime(code.UsedAt)
				d.codes[i].AttemptCount = code.AttemptCount
				d.codes[i].LockedUntil = copyTime(code.LockedUntil)
				return nil
			}
		}
		return ErrCodeNotFound
	})
}

func (d *memData) clone() *memData {
	cp := &memData{
		users:      append([]model.User(nil), d.users...),
		codes:      make([]model.EmailCode, len(d.codes)),
		nextUserID: d.nextUserID,
		nextCodeID: d.nextCodeID,
	}
	for i, code := range d.codes {
		cp.codes[i] = copyCode(code)
	}
	return cp
}

func copyCode(code model.EmailCode) model.EmailCode {
	code.UsedAt = copyTime(code.UsedAt)
	code.LockedUntil = copyTime(code.LockedUntil)
	return code
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
