package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedDecisions struct {
	codes []string
}

func (r *recordedDecisions) AuthzDecision(code string) {
	r.codes = append(r.codes, code)
}

func decodeEnvelope(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

func TestRequireWritesEnvelopeOnDenial(t *testing.T) {
	gate := NewGate(stubResolver{subject: "u-1"}, &stubProfiles{profile: activeProfile(RoleAssistente)}, nil, nil)
	decisions := &recordedDecisions{}
	mw := Middleware{Gate: gate, Metrics: decisions}

	handler := mw.Require(PermPatientsWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on denial")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/patients", nil))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))
	body := decodeEnvelope(t, res)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", body["code"])
	assert.Equal(t, "forbidden", body["error"])
	assert.Equal(t, "assistente", body["userRole"])
	assert.Equal(t, []any{"patients:write"}, body["required"])
	assert.Equal(t, []string{CodeInsufficientPermissions}, decisions.codes)
}

func TestRequireStatusPerCode(t *testing.T) {
	cases := []struct {
		name       string
		gate       *Gate
		wantStatus int
		wantCode   string
	}{
		{
			"auth required",
			NewGate(stubResolver{}, &stubProfiles{}, nil, nil),
			http.StatusUnauthorized, CodeAuthRequired,
		},
		{
			"disabled",
			NewGate(stubResolver{subject: "u-1"}, &stubProfiles{profile: Profile{ID: "u-1", Role: RoleAdmin}}, nil, nil),
			http.StatusForbidden, CodeAccountDisabled,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := Middleware{Gate: tc.gate}
			handler := mw.Require()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.wantStatus, res.Code)
			assert.Equal(t, tc.wantCode, decodeEnvelope(t, res)["code"])
		})
	}
}

func TestRequireInjectsIdentity(t *testing.T) {
	gate := NewGate(stubResolver{subject: "u-1"}, &stubProfiles{profile: activeProfile(RoleRecepcionista)}, nil, nil)
	decisions := &recordedDecisions{}
	mw := Middleware{Gate: gate, Metrics: decisions}

	var seen Identity
	handler := mw.Require(PermPatientsWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/patients", nil))

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "u-1", seen.UserID)
	assert.Equal(t, RoleRecepcionista, seen.Role)
	assert.Equal(t, []string{CodeAuthorized}, decisions.codes)
}
