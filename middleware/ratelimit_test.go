package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tmarq/authgate/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doLimited(handler http.Handler, ip, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLimitHeadersOnAllowed(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	handler := Limit(limiter, ratelimit.Policy{Capacity: 3, Window: time.Minute})(okHandler())

	rec := doLimited(handler, "10.0.0.1", "/api")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "3" {
		t.Fatalf("X-RateLimit-Limit = %q, want 3", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 2", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("X-RateLimit-Reset missing")
	}
}

func TestLimitRejectsOverBudget(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	handler := Limit(limiter, ratelimit.Policy{Capacity: 2, Window: time.Minute})(okHandler())

	doLimited(handler, "10.0.0.1", "/api")
	doLimited(handler, "10.0.0.1", "/api")
	rec := doLimited(handler, "10.0.0.1", "/api")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing on 429")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestLimitByOriginSeparatesClients(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	handler := Limit(limiter, ratelimit.Policy{Capacity: 1, Window: time.Minute, KeyBy: ratelimit.KeyByOrigin})(okHandler())

	doLimited(handler, "10.0.0.1", "/api")
	if rec := doLimited(handler, "10.0.0.1", "/api"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same origin: status = %d, want 429", rec.Code)
	}
	if rec := doLimited(handler, "10.0.0.2", "/api"); rec.Code != http.StatusOK {
		t.Fatalf("other origin: status = %d, want 200", rec.Code)
	}
}

func TestLimitGlobalSharesBudget(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	handler := Limit(limiter, ratelimit.Policy{Capacity: 1, Window: time.Minute, KeyBy: ratelimit.KeyGlobal})(okHandler())

	doLimited(handler, "10.0.0.1", "/api")
	if rec := doLimited(handler, "10.0.0.2", "/api"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("global budget not shared: status = %d", rec.Code)
	}
}

func TestLimitBySubject(t *testing.T) {
	engine := newTestEngine(t)
	limiter := ratelimit.New(ratelimit.Config{})
	policy := ratelimit.Policy{Capacity: 1, Window: time.Minute, KeyBy: ratelimit.KeyBySubject}
	handler := Authenticate(engine)(Limit(limiter, policy)(okHandler()))
	token := loginToken(t, engine)

	authed := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.RemoteAddr = ip + ":1234"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Same subject from different origins shares one budget.
	if rec := authed("10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	if rec := authed("10.0.0.2"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same subject, new origin: status = %d, want 429", rec.Code)
	}

	// Anonymous callers use their own shared bucket, unaffected by the
	// subject's spent budget.
	if rec := doLimited(handler, "10.0.0.3", "/api"); rec.Code != http.StatusOK {
		t.Fatalf("anonymous fallback: status = %d, want 200", rec.Code)
	}
}

func TestLimitBySubjectAnonymousShareOneBucket(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	policy := ratelimit.Policy{Capacity: 2, Window: time.Minute, KeyBy: ratelimit.KeyBySubject}
	handler := Limit(limiter, policy)(okHandler())

	if rec := doLimited(handler, "10.0.0.1", "/api"); rec.Code != http.StatusOK {
		t.Fatalf("first anonymous request: status = %d", rec.Code)
	}
	if rec := doLimited(handler, "10.0.0.2", "/api"); rec.Code != http.StatusOK {
		t.Fatalf("second anonymous request: status = %d", rec.Code)
	}
	if rec := doLimited(handler, "10.0.0.3", "/api"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third anonymous origin: status = %d, want 429 from the shared bucket", rec.Code)
	}

	// A different path gets its own anonymous bucket.
	if rec := doLimited(handler, "10.0.0.4", "/other"); rec.Code != http.StatusOK {
		t.Fatalf("other path: status = %d, want 200", rec.Code)
	}
}

func TestLimitSeparatesPaths(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	policy := ratelimit.Policy{Capacity: 1, Window: time.Minute}
	handler := Limit(limiter, policy)(okHandler())

	doLimited(handler, "10.0.0.1", "/a")
	if rec := doLimited(handler, "10.0.0.1", "/b"); rec.Code != http.StatusOK {
		t.Fatalf("other path should have its own bucket: status = %d", rec.Code)
	}
}
