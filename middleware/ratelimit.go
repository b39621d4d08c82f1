package middleware

import (
	"net/http"
	"strconv"

	"github.com/tmarq/authgate/ratelimit"
)

// Limit applies a rate limit policy to the wrapped handler. Every
// response carries X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset; a rejected request gets 429 with Retry-After.
//
// For KeyBySubject policies, place Limit after Authenticate so the
// identity is in the context; all anonymous requests share one
// "anonymous" budget per path.
func Limit(limiter *ratelimit.Limiter, policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.TryConsume(policy, policyKey(policy, r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(d.RetryAfterSeconds()))

			if !d.Allowed {
				retry := strconv.Itoa(d.RetryAfterSeconds())
				h.Set("Retry-After", retry)
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded","retryAfter":` + retry + `}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// policyKey builds the bucket key: the policy scope joined with the route
// path, so the same limiter can serve many routes without cross-talk.
func policyKey(policy ratelimit.Policy, r *http.Request) string {
	switch policy.KeyBy {
	case ratelimit.KeyBySubject:
		if identity, ok := IdentityFromContext(r.Context()); ok {
			return identity.Email + ":" + r.URL.Path
		}
		return "anonymous:" + r.URL.Path
	case ratelimit.KeyGlobal:
		return r.URL.Path
	default:
		return ClientIP(r) + ":" + r.URL.Path
	}
}
