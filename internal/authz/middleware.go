package authz

import (
	"log/slog"
	"net/http"
)

// DecisionRecorder receives the terminal code of every gate evaluation.
type DecisionRecorder interface {
	AuthzDecision(code string)
}

// Middleware wires the gate into chi route trees.
type Middleware struct {
	Gate    *Gate
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// Require gates the wrapped handler behind the given permissions. An empty
// list still requires a valid session with an active profile. On success
// the identity is placed in the request context; on failure the gate error
// envelope is written and the chain stops.
func (m Middleware) Require(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, gerr := m.Gate.Authorize(r, perms...)
			if gerr != nil {
				m.record(gerr.Code)
				if m.Logger != nil && gerr.Code == CodeInternal {
					m.Logger.Error("authz gate", slog.String("path", r.URL.Path), slog.String("code", gerr.Code))
				}
				gerr.Write(w)
				return
			}
			m.record(CodeAuthorized)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func (m Middleware) record(code string) {
	if m.Metrics != nil {
		m.Metrics.AuthzDecision(code)
	}
}
