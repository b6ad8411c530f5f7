package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/authcode/authcode-go/internal/crypto"
	"github.com/authcode/authcode-go/internal/email"
	"github.com/authcode/authcode-go/internal/model"
	"github.com/authcode/authcode-go/internal/repository"
)

var (
	ErrInvalidCredentials  = errors.New("email or password is incorrect")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrEmailTaken          = errors.New("email already exists")
	ErrRegistrationMissing = errors.New("registration data missing")
)

// PasswordTooShortError reports a password below the minimum length.
type PasswordTooShortError struct {
	Min int
}

func (e *PasswordTooShortError) Error() string {
	return fmt.Sprintf("password must be at least %d characters", e.Min)
}

var validate = validator.New()

// Options configures an AuthService.
type Options struct {
	Secret            string
	JWTSecret         string
	JWTExpiry         time.Duration
	CodeTTL           time.Duration
	ResendCooldown    time.Duration
	Lockout           time.Duration
	MaxAttempts       int
	MinPasswordLength int
	HashParams        crypto.HashParams
}

// AuthService handles registration, login and password reset.
type AuthService struct {
	store     repository.Store
	sender    email.Sender
	codes     codePolicy
	jwtSecret string
	jwtExpiry time.Duration
	minLength int
	hasher    crypto.PasswordHasher
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, sender email.Sender, opts Options) *AuthService {
	return &AuthService{
		store:  store,
		sender: sender,
		codes: codePolicy{
			secret:      opts.Secret,
			ttl:         opts.CodeTTL,
			cooldown:    opts.ResendCooldown,
			lockout:     opts.Lockout,
			maxAttempts: opts.MaxAttempts,
		},
		jwtSecret: opts.JWTSecret,
		jwtExpiry: opts.JWTExpiry,
		minLength: opts.MinPasswordLength,
		hasher:    crypto.NewPasswordHasher(opts.HashParams),
		now:       time.Now,
	}
}

// ResendCooldownSeconds is the wait advertised after a code was sent.
func (s *AuthService) ResendCooldownSeconds() int {
	return int(s.codes.cooldown.Seconds())
}

// SendRegisterCode validates a registration and emails a code. The password
// hash is kept with the code until it is verified.
func (s *AuthService) SendRegisterCode(ctx context.Context, req model.SendRegisterCodeRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := checkRequest(req); err != nil {
		return err
	}
	if err := s.checkNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	return s.withOutcome(ctx, func(tx repository.Store) error {
		if err := userAbsent(ctx, tx, req.Email); err != nil {
			return err
		}
		return s.sendCode(ctx, tx, req.Email, model.PurposeRegister, hash)
	})
}

// VerifyRegisterCode redeems a registration code and creates the user.
func (s *AuthService) VerifyRegisterCode(ctx context.Context, req model.VerifyRegisterCodeRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := checkRequest(req); err != nil {
		return err
	}

	return s.withOutcome(ctx, func(tx repository.Store) error {
		record, err := s.codes.verify(ctx, tx, req.Email, model.PurposeRegister, req.Code, s.now().UTC())
		if err != nil {
			return err
		}
		if err := userAbsent(ctx, tx, req.Email); err != nil {
			return err
		}
		if record.PasswordHash == "" {
			return ErrRegistrationMissing
		}

		user := &model.User{Email: req.Email, PasswordHash: record.PasswordHash}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrEmailTaken
			}
			return err
		}
		return nil
	})
}

// Login authenticates a user and returns an auth token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.LoginResponse{}, ErrInvalidCredentials
		}
		return model.LoginResponse{}, err
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.LoginResponse{}, err
	}
	if !match {
		return model.LoginResponse{}, ErrInvalidCredentials
	}
	s.rehash(ctx, user, req.Password)

	token, err := crypto.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.LoginResponse{}, err
	}

	return model.LoginResponse{Token: token, User: toUserResponse(user)}, nil
}

// SendResetCode emails a password reset code. It does not reveal whether
// the address belongs to an account.
func (s *AuthService) SendResetCode(ctx context.Context, req model.SendResetCodeRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := checkRequest(req); err != nil {
		return err
	}

	return s.withOutcome(ctx, func(tx repository.Store) error {
		return s.sendCode(ctx, tx, req.Email, model.PurposeReset, "")
	})
}

// ResetPassword redeems a reset code and replaces the user's password.
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := checkRequest(req); err != nil {
		return err
	}
	if err := s.checkNewPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}

	return s.withOutcome(ctx, func(tx repository.Store) error {
		if _, err := s.codes.verify(ctx, tx, req.Email, model.PurposeReset, req.Code, s.now().UTC()); err != nil {
			return err
		}

		user, err := tx.Users().GetByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return err
		}
		return tx.Users().UpdatePasswordHash(ctx, user.ID, hash)
	})
}

// rehash upgrades a stored hash made with old parameters. Failure only
// costs the upgrade, so it is logged and the login proceeds.
func (s *AuthService) rehash(ctx context.Context, user *model.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.store.Users().UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		slog.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *AuthService) sendCode(ctx context.Context, tx repository.Store, address string, purpose model.Purpose, passwordHash string) error {
	code, err := s.codes.issue(ctx, tx, address, purpose, passwordHash, s.now().UTC())
	if err != nil {
		return err
	}
	if err := s.sender.SendCode(ctx, address, code, purpose); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// withOutcome runs fn in a transaction. Domain errors are returned to the
// caller but still commit, so attempt counters and used marks persist.
func (s *AuthService) withOutcome(ctx context.Context, fn func(tx repository.Store) error) error {
	var outcome error
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := fn(tx); err != nil {
			if !isDomainError(err) {
				return err
			}
			outcome = err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return outcome
}

func (s *AuthService) checkNewPassword(password, confirm string) error {
	if len(password) < s.minLength {
		return &PasswordTooShortError{Min: s.minLength}
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func userAbsent(ctx context.Context, tx repository.Store, address string) error {
	_, err := tx.Users().GetByEmail(ctx, address)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	default:
		return err
	}
}

// checkRequest validates the tagged fields of req. The email is checked
// before the code.
func checkRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	for _, fe := range ve {
		if fe.StructField() == "Email" {
			return ErrInvalidEmail
		}
	}
	return ErrInvalidCode
}

func isDomainError(err error) bool {
	var retry *RetryError
	var short *PasswordTooShortError
	return errors.As(err, &retry) ||
		errors.As(err, &short) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrRegistrationMissing) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrInvalidCredentials)
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func toUserResponse(user *model.User) model.UserResponse {
	return model.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
