package user

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

// -- Mock Repository --

type mockRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
	err   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) RecordFailedLogin(_ context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, ErrNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.FailedLoginAttempts = 0
		lu := lockUntil
		u.LockedUntil = &lu
		return true, nil
	}
	return false, nil
}

func (m *mockRepo) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &at
	return nil
}

// -- Helpers --

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*Service, *mockRepo, *testClock) {
	repo := newMockRepo()
	tokens := auth.NewTokenManager([]byte("test-signing-key-0123456789abcdef"), "clinrec", 8*time.Hour)
	svc := NewService(repo, tokens, Options{BcryptCost: bcrypt.MinCost}, zerolog.New(io.Discard))
	clock := &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.now
	return svc, repo, clock
}

func seedUser(t *testing.T, svc *Service, username, password, role string) *User {
	t.Helper()
	u, err := svc.Create(context.Background(), CreateInput{
		Username: username,
		Email:    username + "@clinrec.test",
		Password: password,
		Role:     role,
		Name:     "Test " + username,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// -- Tests --

func TestService_LoginSuccess(t *testing.T) {
	svc, repo, _ := newTestService()
	u := seedUser(t, svc, "drlopez", "correct-horse", auth.RolePhysician)

	res, err := svc.Login(context.Background(), "  DrLopez ", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token == "" || res.User.ID != u.ID || res.User.Role != auth.RolePhysician {
		t.Errorf("unexpected result %+v", res)
	}
	if !res.ExpiresAt.After(time.Now()) {
		t.Error("expected future expiry")
	}
	if repo.users[u.ID].LastLogin == nil {
		t.Error("expected last login to be recorded")
	}
}

func TestService_LoginUnknownUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Login(context.Background(), "ghost", "whatever")
	var lerr *LoginError
	if !errors.As(err, &lerr) || !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if lerr.UserID != "" {
		t.Errorf("expected no user id for unknown user, got %q", lerr.UserID)
	}
}

func TestService_LoginInactiveUserLooksUnknown(t *testing.T) {
	svc, repo, _ := newTestService()
	u := seedUser(t, svc, "retired", "password-1", auth.RoleNurse)
	repo.users[u.ID].IsActive = false

	_, err := svc.Login(context.Background(), "retired", "password-1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestService_LockoutAfterFiveFailures(t *testing.T) {
	svc, repo, clock := newTestService()
	u := seedUser(t, svc, "nurse1", "right-password", auth.RoleNurse)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "nurse1", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}
	if repo.users[u.ID].FailedLoginAttempts != 0 {
		t.Errorf("expected counter reset on lock, got %d", repo.users[u.ID].FailedLoginAttempts)
	}

	_, err := svc.Login(ctx, "nurse1", "right-password")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected locked account on sixth attempt, got %v", err)
	}

	clock.advance(15*time.Minute + time.Second)
	if _, err := svc.Login(ctx, "nurse1", "right-password"); err != nil {
		t.Fatalf("expected login after lock expiry, got %v", err)
	}
	if repo.users[u.ID].LockedUntil != nil {
		t.Error("expected lock cleared after successful login")
	}
}

func TestService_SuccessResetsCounter(t *testing.T) {
	svc, repo, _ := newTestService()
	u := seedUser(t, svc, "admin2", "right-password", auth.RoleAdmin)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.Login(ctx, "admin2", "nope-nope")
	}
	if _, err := svc.Login(ctx, "admin2", "right-password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.users[u.ID].FailedLoginAttempts != 0 {
		t.Errorf("expected counter reset, got %d", repo.users[u.ID].FailedLoginAttempts)
	}
	svc.Login(ctx, "admin2", "nope-nope")
	if _, err := svc.Login(ctx, "admin2", "right-password"); err != nil {
		t.Errorf("one failure after reset must not lock: %v", err)
	}
}

func TestService_LoginRepoError(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.err = errors.New("connection reset")

	_, err := svc.Login(context.Background(), "anyone", "password")
	var lerr *LoginError
	if errors.As(err, &lerr) {
		t.Fatalf("storage errors must not look like credential failures: %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected wrapped storage error, got %v", err)
	}
}

func TestService_IsActive(t *testing.T) {
	svc, repo, _ := newTestService()
	u := seedUser(t, svc, "checker", "password-1", auth.RoleNurse)
	ctx := context.Background()

	if ok, err := svc.IsActive(ctx, u.ID.String()); err != nil || !ok {
		t.Errorf("expected active, got %v %v", ok, err)
	}
	repo.users[u.ID].IsActive = false
	if ok, _ := svc.IsActive(ctx, u.ID.String()); ok {
		t.Error("expected inactive")
	}
	if ok, err := svc.IsActive(ctx, "not-a-uuid"); ok || err != nil {
		t.Errorf("expected false without error, got %v %v", ok, err)
	}
	if ok, err := svc.IsActive(ctx, uuid.NewString()); ok || err != nil {
		t.Errorf("expected false for unknown id, got %v %v", ok, err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{
		Username: "a!",
		Email:    "not-an-email",
		Password: "short",
		Role:     "superuser",
		Name:     "X",
	})
	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"username", "email", "password", "role", "name"} {
		if !fields[want] {
			t.Errorf("expected error on %s, got %+v", want, verr.Fields)
		}
	}
}

func TestService_CreateHashesAndLowercases(t *testing.T) {
	svc, _, _ := newTestService()
	u := seedUser(t, svc, "DrAna", "password-1", auth.RolePhysician)

	if u.Username != "drana" {
		t.Errorf("expected lowercase username, got %s", u.Username)
	}
	if u.PasswordHash == "password-1" {
		t.Error("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password-1")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}
}

func TestService_EnsureAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "bootstrap-secret")
	if err != nil || !created {
		t.Fatalf("expected admin creation, got %v %v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "bootstrap-secret")
	if err != nil || created {
		t.Errorf("expected second call to be a no-op, got %v %v", created, err)
	}
	if _, err := svc.Login(ctx, "admin", "bootstrap-secret"); err != nil {
		t.Errorf("expected admin login, got %v", err)
	}
}
