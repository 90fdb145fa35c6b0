package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/config"
	"github.com/clinrec/clinrec/internal/domain/auditlog"
	"github.com/clinrec/clinrec/internal/domain/medicalrecord"
	"github.com/clinrec/clinrec/internal/domain/patient"
	"github.com/clinrec/clinrec/internal/domain/user"
	"github.com/clinrec/clinrec/internal/platform/auth"
	"github.com/clinrec/clinrec/internal/platform/telemetry"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func (r *memUsers) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return user.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) RecordFailedLogin(_ context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.FailedLoginAttempts = 0
		u.LockedUntil = &lockUntil
		return true, nil
	}
	return false, nil
}

func (r *memUsers) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &at
	return nil
}

type memPatients struct {
	mu       sync.Mutex
	patients []*patient.Patient
}

func (r *memPatients) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	r.patients = append(r.patients, &cp)
	return nil
}

func (r *memPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r *memPatients) ListActive(_ context.Context) ([]*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*patient.Patient, 0, len(r.patients))
	for i := len(r.patients) - 1; i >= 0; i-- {
		if r.patients[i].IsActive {
			out = append(out, r.patients[i])
		}
	}
	return out, nil
}

type memRecords struct {
	mu      sync.Mutex
	records []*medicalrecord.MedicalRecord
}

func (r *memRecords) Create(_ context.Context, m *medicalrecord.MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	cp := *m
	r.records = append(r.records, &cp)
	return nil
}

func (r *memRecords) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*medicalrecord.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*medicalrecord.MedicalRecord{}
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].PatientID == patientID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*auditlog.Entry
}

func (r *memAudit) Insert(_ context.Context, e *auditlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memAudit) Search(_ context.Context, f auditlog.Filter, limit, offset int) ([]*auditlog.Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*auditlog.Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	if offset >= total {
		return []*auditlog.Entry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memAudit) count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type testServer struct {
	e     *echo.Echo
	svc   *services
	audit *memAudit
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "0",
		Env:                   "test",
		AppVersion:            "1.2.3",
		JWTSecret:             "test-secret-that-is-long-enough-for-hs256",
		JWTIssuer:             "clinrec",
		JWTTTL:                time.Hour,
		CORSOrigins:           []string{"http://localhost:3000"},
		RateLimitRequests:     100,
		RateLimitWindow:       time.Minute,
		AuthRateLimitRequests: 5,
		LoginMaxAttempts:      5,
		LoginLockDuration:     15 * time.Minute,
		BcryptCost:            4,
		BodyLimit:             "1M",
		RequestTimeout:        5 * time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	audit := &memAudit{}
	repos := repositories{
		users:    &memUsers{users: map[uuid.UUID]*user.User{}},
		patients: &memPatients{},
		records:  &memRecords{},
		audit:    audit,
	}
	svc := newServices(cfg, repos, zerolog.Nop(), telemetry.NewMetrics("clinrec_test"))
	return &testServer{e: newRouter(cfg, zerolog.Nop(), svc), svc: svc, audit: audit}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createUser(t *testing.T, username, role string) {
	t.Helper()
	_, err := s.svc.users.Create(context.Background(), user.CreateInput{
		Username: username,
		Email:    username + "@clinrec.test",
		Password: "correct-horse",
		Role:     role,
		Name:     "Test " + username,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"correct-horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var res user.LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return res.Token
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := s.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "OK" || body["version"] != "1.2.3" || body["environment"] != "test" {
		t.Errorf("unexpected body %v", body)
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"]); err != nil {
		t.Errorf("timestamp not RFC3339: %q", body["timestamp"])
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.do(http.MethodGet, "/health", "", "")
	rec := s.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "clinrec_test_") {
		t.Error("expected namespaced collectors in /metrics output")
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := s.do(http.MethodGet, "/api/patients", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if n := s.audit.count(auth.ActionAuthFailed); n != 1 {
		t.Errorf("expected 1 AUTH_FAILED entry, got %d", n)
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := s.do(http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected JSON error body, got %s", rec.Body.String())
	}
}

func TestPhysicianWorkflow(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createUser(t, "drlopez", auth.RolePhysician)
	token := s.login(t, "drlopez")

	rec := s.do(http.MethodPost, "/api/patients", token,
		`{"name":"Ana Pérez","phone":"3001234567","gender":"f","birthDate":"1990-04-12"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create patient: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var p patient.Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Gender != "F" || p.Status != patient.StatusActive {
		t.Errorf("unexpected patient %+v", p)
	}

	path := "/api/patients/" + p.ID.String() + "/medical-records"
	rec = s.do(http.MethodPost, path, token, `{"reason":"Dolor de cabeza","diagnosis":"Migraña"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create record: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, path, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list records: expected 200, got %d", rec.Code)
	}
	var records []medicalrecord.MedicalRecord
	json.Unmarshal(rec.Body.Bytes(), &records)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	for _, action := range []string{
		auditlog.ActionLoginSuccess,
		auditlog.ActionPatientCreated,
		auditlog.ActionMedicalRecordCreated,
		auditlog.ActionMedicalRecordsAccessed,
	} {
		if n := s.audit.count(action); n != 1 {
			t.Errorf("expected 1 %s entry, got %d", action, n)
		}
	}
}

func TestRecordsForUnknownPatient(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createUser(t, "drlopez", auth.RolePhysician)
	token := s.login(t, "drlopez")

	rec := s.do(http.MethodGet, "/api/patients/"+uuid.NewString()+"/medical-records", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createUser(t, "enfermera", auth.RoleNurse)
	token := s.login(t, "enfermera")

	if rec := s.do(http.MethodGet, "/api/patients", token, ""); rec.Code != http.StatusOK {
		t.Errorf("nurse list patients: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/patients", token, `{"name":"Ana","phone":"3001234567"}`); rec.Code != http.StatusForbidden {
		t.Errorf("nurse create patient: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/audit-logs", token, ""); rec.Code != http.StatusForbidden {
		t.Errorf("nurse audit logs: expected 403, got %d", rec.Code)
	}
	if n := s.audit.count(auth.ActionAuthorizationFailed); n != 2 {
		t.Errorf("expected 2 AUTHORIZATION_FAILED entries, got %d", n)
	}
}

func TestAdminReadsAuditLogs(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createUser(t, "admin", auth.RoleAdmin)
	token := s.login(t, "admin")

	rec := s.do(http.MethodGet, "/api/audit-logs?action=LOGIN_SUCCESS&limit=10", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page auditlog.Page
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 || len(page.Logs) != 1 || page.Logs[0].Action != auditlog.ActionLoginSuccess {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimitRequests = 2
	s := newTestServer(t, cfg)

	body := `{"username":"nadie","password":"whatever"}`
	for i := 0; i < 2; i++ {
		if rec := s.do(http.MethodPost, "/api/auth/login", "", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	if rec := s.do(http.MethodPost, "/api/auth/login", "", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
}
