package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
)

// LoginError carries the matched account, if any, alongside the failure.
type LoginError struct {
	UserID string
	Err    error
}

func (e *LoginError) Error() string { return e.Err.Error() }
func (e *LoginError) Unwrap() error { return e.Err }

// Options tunes lockout and hashing.
type Options struct {
	MaxAttempts  int
	LockDuration time.Duration
	BcryptCost   int
}

func (o *Options) applyDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.LockDuration <= 0 {
		o.LockDuration = 15 * time.Minute
	}
	if o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost {
		o.BcryptCost = 12
	}
}

type Service struct {
	repo      Repository
	tokens    *auth.TokenManager
	opts      Options
	logger    zerolog.Logger
	validator *validate.Validator
	now       func() time.Time
	dummyHash []byte
}

func NewService(repo Repository, tokens *auth.TokenManager, opts Options, logger zerolog.Logger) *Service {
	opts.applyDefaults()
	// Compared against when the username is unknown so both paths cost one bcrypt run.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("clinrec-dummy-password"), opts.BcryptCost)
	return &Service{
		repo:      repo,
		tokens:    tokens,
		opts:      opts,
		logger:    logger,
		validator: validate.New(),
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Login checks credentials and issues a token. Failures are *LoginError
// wrapping ErrInvalidCredentials or ErrAccountLocked.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, &LoginError{Err: ErrInvalidCredentials}
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	uid := u.ID.String()

	now := s.now()
	if u.IsLocked(now) {
		return nil, &LoginError{UserID: uid, Err: ErrAccountLocked}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		locked, rerr := s.repo.RecordFailedLogin(ctx, u.ID, s.opts.MaxAttempts, now.Add(s.opts.LockDuration))
		if rerr != nil {
			s.logger.Error().Err(rerr).Str("user_id", uid).Msg("failed to record login failure")
		} else if locked {
			s.logger.Warn().Str("user_id", uid).Dur("lock", s.opts.LockDuration).Msg("account locked after repeated login failures")
		}
		return nil, &LoginError{UserID: uid, Err: ErrInvalidCredentials}
	}

	if err := s.repo.RecordLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	token, exp, err := s.tokens.Issue(uid, u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Str("user_id", uid).Str("role", u.Role).Msg("user logged in")
	return &LoginResult{Token: token, ExpiresAt: exp, User: u.Profile()}, nil
}

// IsActive satisfies auth.UserChecker.
func (s *Service) IsActive(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsActive, nil
}

// Create validates in, hashes the password and stores an active account.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Name:         in.Name,
		Speciality:   strings.TrimSpace(in.Speciality),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the "admin" account when it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	_, err := s.repo.GetByUsername(ctx, "admin")
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err = s.Create(ctx, CreateInput{
		Username:   "admin",
		Email:      "admin@clinrec.local",
		Password:   password,
		Role:       auth.RoleAdmin,
		Name:       "Administrador del Sistema",
		Speciality: "Administración",
	})
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
