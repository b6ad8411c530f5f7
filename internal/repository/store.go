package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/authcode/authcode-go/internal/model"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// CodeStore persists issued verification codes.
type CodeStore interface {
	// Latest returns the most recently created code for email and purpose.
	Latest(ctx context.Context, email string, purpose model.Purpose) (*model.EmailCode, error)
	// InvalidateActive marks every unused, unexpired code for email and purpose as used at now.
	InvalidateActive(ctx context.Context, email string, purpose model.Purpose, now time.Time) error
	Create(ctx context.Context, code *model.EmailCode) error
	// Update writes the mutable fields: used_at, attempt_count, locked_until.
	Update(ctx context.Context, code *model.EmailCode) error
}

// Store groups the stores and runs units of work atomically.
type Store interface {
	Users() UserStore
	Codes() CodeStore
	// WithinTx runs fn against a transactional Store. fn's error rolls back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db   *sql.DB
	conn DBTX
}

// NewSQLStore creates a Store over a database connection pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, conn: db}
}

func (s *SQLStore) Users() UserStore { return NewUserRepository(s.conn) }

func (s *SQLStore) Codes() CodeStore {
	repo := NewCodeRepository(s.conn)
	_, repo.lock = s.conn.(*sql.Tx)
	return repo
}

// WithinTx begins a transaction, commits when fn succeeds and rolls back otherwise.
// Nested calls reuse the outer transaction.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.conn.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLStore{db: s.db, conn: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks the connection, for health reporting.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("no database")
	}
	return s.db.PingContext(ctx)
}
