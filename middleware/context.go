package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/tmarq/authgate"
)

type identityContextKey struct{}

func withIdentity(ctx context.Context, id authgate.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the authenticated identity placed in the
// context by Authenticate. ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (authgate.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(authgate.Identity)
	return id, ok
}

// ClientIP derives the caller's origin: first hop of X-Forwarded-For,
// then X-Real-IP, then the connection's remote address. Only trust the
// header values when a proxy you control sets them.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestContext stamps origin and user agent onto the context for audit
// events and login throttling.
func requestContext(r *http.Request) context.Context {
	ctx := authgate.WithClientIP(r.Context(), ClientIP(r))
	return authgate.WithUserAgent(ctx, r.UserAgent())
}
