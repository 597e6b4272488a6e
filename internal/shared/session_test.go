package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/salus-crm/salus-crm/internal/shared"
	_ "github.com/salus-crm/salus-crm/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("u-1")
	sess.Set("k", "v")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := res.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	sess2, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if sess2.User() != "u-1" {
		t.Fatalf("expected user u-1, got %q", sess2.User())
	}
	if sess2.Get("k") != "v" {
		t.Fatalf("expected stored value, got %q", sess2.Get("k"))
	}
}

func TestDestroyedSessionDoesNotComeBack(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("u-1")
	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	oldID := sess.ID
	sm.Destroy(sess)
	res2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, res2, req, sess); err != nil {
		t.Fatalf("commit after destroy: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldID})
	sess2, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if sess2.User() != "" {
		t.Fatalf("expected anonymous session, got user %q", sess2.User())
	}
}

func TestCSRFTokenLifecycle(t *testing.T) {
	sm := newManager(t)
	cm := shared.NewCSRFManager("csrfsecret")
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	token, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	again, err := cm.EnsureToken(ctx, sess)
	if err != nil || again != token {
		t.Fatalf("expected stable token, got %q err=%v", again, err)
	}

	if err := cm.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := cm.VerifyToken(ctx, sess, "tampered"); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if err := cm.VerifyToken(ctx, sess, ""); err == nil {
		t.Fatalf("expected missing-token error")
	}
}
