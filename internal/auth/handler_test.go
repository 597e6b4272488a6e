package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/salus-crm/salus-crm/internal/auth"
	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
	_ "github.com/salus-crm/salus-crm/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

type stubProfiles struct {
	profile authz.Profile
	err     error
}

func (s *stubProfiles) ProfileByID(ctx context.Context, id string) (authz.Profile, error) {
	if s.err != nil {
		return authz.Profile{}, s.err
	}
	return s.profile, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository, profiles authz.ProfileStore) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	gate := authz.NewGate(auth.SessionSubjectResolver{}, profiles, nil, nil)
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager, gate)
	return handler, sessionManager
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx), sess
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &auth.User{
		ID:           "u-1",
		Email:        "user@test.local",
		PasswordHash: string(hashed),
		DisplayName:  "User Test",
		Role:         authz.RoleRecepcionista,
		ClinicID:     "clinic-1",
		IsActive:     true,
	}
	handler, sm := newAuthHandler(t, &stubRepo{user: user}, &stubProfiles{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "u-1" {
		t.Fatalf("expected session user u-1, got %q", sess.User())
	}
	body := decodeBody(t, res)
	if body["csrfToken"] == "" || body["csrfToken"] == nil {
		t.Fatalf("expected csrf token in response")
	}
	userBody, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object in response")
	}
	if userBody["role"] != "recepcionista" {
		t.Fatalf("expected role recepcionista, got %v", userBody["role"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	user := &auth.User{ID: "u-1", Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}
	handler, sm := newAuthHandler(t, &stubRepo{user: user}, &stubProfiles{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@test.local","password":"wrongpass1"}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", body["code"])
	}
}

func TestLoginDisabledAccountLooksLikeBadCredentials(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	user := &auth.User{ID: "u-1", Email: "user@test.local", PasswordHash: string(hashed), IsActive: false}
	handler, sm := newAuthHandler(t, &stubRepo{user: user}, &stubProfiles{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", body["code"])
	}
}

func TestMeWithoutSession(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{}, &stubProfiles{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.MeForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["code"] != "AUTH_REQUIRED" {
		t.Fatalf("expected AUTH_REQUIRED, got %v", body["code"])
	}
}

func TestMeReturnsProfile(t *testing.T) {
	profiles := &stubProfiles{profile: authz.Profile{
		ID:          "u-1",
		Email:       "user@test.local",
		Role:        authz.RoleMedico,
		ClinicID:    "clinic-1",
		DisplayName: "Dra. Ana",
		Active:      true,
	}}
	handler, sm := newAuthHandler(t, &stubRepo{}, profiles)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req, sess := withSession(t, sm, req)
	sess.SetUser("u-1")

	res := httptest.NewRecorder()
	handler.MeForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["role"] != "medico" {
		t.Fatalf("expected role medico, got %v", body["role"])
	}
	if body["clinicId"] != "clinic-1" {
		t.Fatalf("expected clinicId clinic-1, got %v", body["clinicId"])
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{}, &stubProfiles{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req, sess := withSession(t, sm, req)
	sess.SetUser("u-1")

	res := httptest.NewRecorder()
	handler.LogoutForTest(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", res.Code)
	}

	// the destroyed session must not resurrect on the next request
	if err := sm.Commit(req.Context(), httptest.NewRecorder(), req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	reloaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.User() != "" {
		t.Fatalf("expected anonymous session, got user %q", reloaded.User())
	}
}
