package middleware

import (
	"context"
	"net/http"
)

// Role is the caller's role as asserted by the fronting gateway.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePM     Role = "pm"
	RoleDev    Role = "dev"
	RoleClient Role = "client"
)

// Principal is the authenticated caller identity extracted from gateway
// headers. ClientID is set only for client-role callers and scopes their
// reads to their own data.
type Principal struct {
	UserID   string
	Role     Role
	ClientID string
}

type principalKey struct{}

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	headerClientID = "X-Client-ID"
)

// Identity extracts the caller identity from gateway headers and stores it
// in the request context. Requests without identity headers pass through
// anonymously; RequireRole decides whether that is acceptable per route.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(headerUserID)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		p := &Principal{
			UserID:   userID,
			Role:     Role(r.Header.Get(headerUserRole)),
			ClientID: r.Header.Get(headerClientID),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// PrincipalFromContext returns the caller identity, or nil for anonymous
// requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// RequireRole returns middleware that restricts access to callers with one
// of the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			if !allowed[p.Role] {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
