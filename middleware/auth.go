package middleware

import (
	"net/http"
	"strings"

	"github.com/tmarq/authgate"
)

const bearer = "Bearer "

// Authenticate resolves the request's bearer token into an identity and
// stores it in the context. Requests with no token, a malformed header,
// or a failing token pass through anonymously; route handlers decide
// whether anonymity is acceptable, typically via RequireIdentity. Paths
// listed in skipPaths bypass token resolution entirely (exact match, or
// prefix match when the entry ends with "/").
func Authenticate(engine *authgate.Engine, skipPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestContext(r)
			r = r.WithContext(ctx)

			if skipPath(r.URL.Path, skipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := engine.Authenticate(ctx, token)
			if err != nil {
				// Invalid token, anonymous pass-through. The route guard
				// turns this into a 401 where one is required.
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(ctx, identity)))
		})
	}
}

// RequireIdentity rejects anonymous requests with 401. Place it after
// Authenticate on routes that need a caller.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose identity does not hold one of the
// allowed roles. Anonymous requests get 401, wrong roles 403.
func RequireRole(roles ...authgate.Role) func(http.Handler) http.Handler {
	allowed := make(map[authgate.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}

func skipPath(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}
