package auth

import (
	"net/http"
	"strings"

	"github.com/salus-crm/salus-crm/internal/shared"
)

// SessionSubjectResolver resolves the gate's subject from the session the
// middleware stack loaded into the request context. No session or an
// anonymous session both yield an empty subject.
type SessionSubjectResolver struct{}

// ResolveSubject implements authz.SessionResolver.
func (SessionSubjectResolver) ResolveSubject(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", nil
	}
	return strings.TrimSpace(sess.User()), nil
}
