package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/authcode/authcode-go/internal/crypto"
	"github.com/authcode/authcode-go/internal/model"
	"github.com/authcode/authcode-go/internal/repository"
)

var (
	ErrCodeCooldown = errors.New("resend cooldown active")
	ErrCodeLocked   = errors.New("too many attempts, try later")
	ErrInvalidCode  = errors.New("invalid or expired code")
)

// RetryError is returned when an operation is refused for a while.
// RetryAfter is the number of seconds to wait, at least 1.
type RetryError struct {
	Reason     error
	RetryAfter int
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", e.Reason, e.RetryAfter)
}

func (e *RetryError) Unwrap() error { return e.Reason }

func retryAfter(reason error, remaining time.Duration) *RetryError {
	secs := int(math.Floor(remaining.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return &RetryError{Reason: reason, RetryAfter: secs}
}

// codePolicy issues and redeems verification codes inside a transaction.
type codePolicy struct {
	secret      string
	ttl         time.Duration
	cooldown    time.Duration
	lockout     time.Duration
	maxAttempts int
}

// issue creates a fresh code for email and purpose, invalidating any
// earlier active ones. It returns the plaintext code to deliver.
func (p codePolicy) issue(ctx context.Context, tx repository.Store, email string, purpose model.Purpose, passwordHash string, now time.Time) (string, error) {
	latest, err := tx.Codes().Latest(ctx, email, purpose)
	if err != nil && !errors.Is(err, repository.ErrCodeNotFound) {
		return "", err
	}

	if latest != nil {
		if latest.LockedAt(now) {
			return "", retryAfter(ErrCodeLocked, latest.LockedUntil.Sub(now))
		}
		if elapsed := now.Sub(latest.CreatedAt); elapsed < p.cooldown {
			return "", retryAfter(ErrCodeCooldown, p.cooldown-elapsed)
		}
	}

	if err := tx.Codes().InvalidateActive(ctx, email, purpose, now); err != nil {
		return "", err
	}

	code, err := crypto.GenerateCode()
	if err != nil {
		return "", err
	}

	record := &model.EmailCode{
		Email:        email,
		Purpose:      purpose,
		CodeHash:     crypto.HashCode(code, p.secret),
		PasswordHash: passwordHash,
		ExpiresAt:    now.Add(p.ttl),
		CreatedAt:    now,
	}
	if err := tx.Codes().Create(ctx, record); err != nil {
		return "", err
	}

	return code, nil
}

// verify redeems code. A mismatch is recorded on the code row and
// returns ErrInvalidCode, so callers must commit even on that error.
func (p codePolicy) verify(ctx context.Context, tx repository.Store, email string, purpose model.Purpose, code string, now time.Time) (*model.EmailCode, error) {
	record, err := tx.Codes().Latest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	if record.LockedAt(now) {
		return nil, retryAfter(ErrCodeLocked, record.LockedUntil.Sub(now))
	}
	if !record.ActiveAt(now) {
		return nil, ErrInvalidCode
	}

	if !crypto.CodeMatches(code, p.secret, record.CodeHash) {
		record.AttemptCount++
		if record.AttemptCount >= p.maxAttempts {
			until := now.Add(p.lockout)
			record.LockedUntil = &until
		}
		if err := tx.Codes().Update(ctx, record); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCode
	}

	used := now
	record.UsedAt = &used
	if err := tx.Codes().Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
