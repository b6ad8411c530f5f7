package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUnsupportedDBName = errors.New("database name contains unsupported characters")

	dbNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS email_codes (
		id            BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		purpose       VARCHAR(20)  NOT NULL,
		code_hash     CHAR(64)     NOT NULL,
		password_hash VARCHAR(255) NULL,
		expires_at    DATETIME(6)  NOT NULL,
		used_at       DATETIME(6)  NULL,
		attempt_count INT          NOT NULL DEFAULT 0,
		locked_until  DATETIME(6)  NULL,
		created_at    DATETIME(6)  NOT NULL,
		KEY idx_email_codes_lookup (email, purpose, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// NewDB creates a new MySQL database connection pool with the given DSN.
// Times are always read and written as UTC.
func NewDB(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// EnsureDatabase creates the database named in dsn if it does not exist yet,
// connecting to the server without selecting a schema.
func EnsureDatabase(ctx context.Context, dsn string) error {
	serverDSN, name, err := splitDSN(dsn)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}

	db, err := sql.Open("mysql", serverDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", name)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}

	slog.Info("database ensured", "name", name)
	return nil
}

// Migrate creates the tables used by the stores.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// splitDSN returns dsn without its database and the database name.
func splitDSN(dsn string) (string, string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", "", fmt.Errorf("parse dsn: %w", err)
	}

	name := cfg.DBName
	if name != "" && !dbNamePattern.MatchString(name) {
		return "", "", ErrUnsupportedDBName
	}

	cfg.DBName = ""
	return cfg.FormatDSN(), name, nil
}
