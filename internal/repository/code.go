package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/authcode/authcode-go/internal/model"
)

var ErrCodeNotFound = errors.New("verification code not found")

// CodeRepository handles verification code persistence operations.
type CodeRepository struct {
	db DBTX
	// lock makes Latest take a row lock; set only inside a transaction.
	lock bool
}

// NewCodeRepository creates a new CodeRepository.
func NewCodeRepository(db DBTX) *CodeRepository {
	return &CodeRepository{db: db}
}

func latestQuery(lock bool) string {
	query := `SELECT id, email, purpose, code_hash, password_hash, expires_at, used_at,
			attempt_count, locked_until, created_at
		FROM email_codes WHERE email = ? AND purpose = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`
	if lock {
		query += " FOR UPDATE"
	}
	return query
}

// Latest returns the newest code for an email and purpose. Within a
// transaction the row stays locked until commit, so concurrent guesses
// against the same code are counted one after another.
func (r *CodeRepository) Latest(ctx context.Context, email string, purpose model.Purpose) (*model.EmailCode, error) {
	query := latestQuery(r.lock)

	var (
		code         model.EmailCode
		purposeStr   string
		passwordHash sql.NullString
		usedAt       sql.NullTime
		lockedUntil  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, email, string(purpose)).Scan(
		&code.ID, &code.Email, &purposeStr, &code.CodeHash, &passwordHash, &code.ExpiresAt,
		&usedAt, &code.AttemptCount, &lockedUntil, &code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	code.Purpose = model.Purpose(purposeStr)
	code.PasswordHash = passwordHash.String
	code.UsedAt = timePtr(usedAt)
	code.LockedUntil = timePtr(lockedUntil)
	return &code, nil
}

// InvalidateActive marks all redeemable codes for an email and purpose as used.
func (r *CodeRepository) InvalidateActive(ctx context.Context, email string, purpose model.Purpose, now time.Time) error {
	query := `UPDATE email_codes SET used_at = ?
		WHERE email = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?`

	_, err := r.db.ExecContext(ctx, query, now, email, string(purpose), now)
	return err
}

// Create inserts a new code and sets the generated ID.
func (r *CodeRepository) Create(ctx context.Context, code *model.EmailCode) error {
	query := `INSERT INTO email_codes
		(email, purpose, code_hash, password_hash, expires_at, used_at, attempt_count, locked_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		code.Email,
		string(code.Purpose),
		code.CodeHash,
		nullString(code.PasswordHash),
		code.ExpiresAt,
		nullTime(code.UsedAt),
		code.AttemptCount,
		nullTime(code.LockedUntil),
		code.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	code.ID = id
	return nil
}

// Update persists the attempt counter, lock and usage of an existing code.
func (r *CodeRepository) Update(ctx context.Context, code *model.EmailCode) error {
	query := `UPDATE email_codes SET used_at = ?, attempt_count = ?, locked_until = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullTime(code.UsedAt), code.AttemptCount, nullTime(code.LockedUntil), code.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCodeNotFound
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
