package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tmarq/authgate"
	"github.com/tmarq/authgate/refresh"
)

type staticProvider struct {
	identity authgate.Identity
}

func (p *staticProvider) LookupByEmail(_ context.Context, email string) (authgate.Identity, error) {
	if email != p.identity.Email {
		return authgate.Identity{}, errors.New("user not found")
	}
	return p.identity, nil
}

func (p *staticProvider) LookupByID(_ context.Context, id string) (authgate.Identity, error) {
	if id != p.identity.ID {
		return authgate.Identity{}, errors.New("user not found")
	}
	return p.identity, nil
}

func newTestEngine(t *testing.T) *authgate.Engine {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	provider := &staticProvider{identity: authgate.Identity{
		ID:           "user-1",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: string(hash),
		Role:         authgate.RoleManager,
	}}

	cfg := authgate.Config{JWT: authgate.JWTConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
	}}
	engine, err := authgate.New().
		WithConfig(cfg).
		WithUserProvider(provider).
		WithTokenStore(refresh.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func loginToken(t *testing.T, engine *authgate.Engine) string {
	t.Helper()
	pair, err := engine.Login(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return pair.AccessToken
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			w.Header().Set("X-Test-User", identity.ID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateSetsIdentity(t *testing.T) {
	engine := newTestEngine(t)
	handler := Authenticate(engine)(identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, engine))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Test-User"); got != "user-1" {
		t.Fatalf("identity user = %q, want user-1", got)
	}
}

func TestAuthenticateAnonymousPassThrough(t *testing.T) {
	engine := newTestEngine(t)
	handler := Authenticate(engine)(identityEcho())

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"invalid token", "Bearer garbage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/anything", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want pass-through 200", rec.Code)
			}
			if rec.Header().Get("X-Test-User") != "" {
				t.Fatal("request should be anonymous")
			}
		})
	}
}

func TestAuthenticateSkipPaths(t *testing.T) {
	engine := newTestEngine(t)
	handler := Authenticate(engine, "/health", "/public/")(identityEcho())
	token := loginToken(t, engine)

	for _, path := range []string{"/health", "/public/docs"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("X-Test-User") != "" {
			t.Fatalf("%s: token should not be resolved on a skip path", path)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Test-User") != "user-1" {
		t.Fatal("/healthz is not an exact match and must authenticate")
	}
}

func TestRequireIdentity(t *testing.T) {
	engine := newTestEngine(t)
	handler := Authenticate(engine)(RequireIdentity(identityEcho()))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, engine))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine := newTestEngine(t)
	token := loginToken(t, engine)

	build := func(roles ...authgate.Role) http.Handler {
		return Authenticate(engine)(RequireRole(roles...)(identityEcho()))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	build(authgate.RoleAdmin, authgate.RoleManager).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager on manager route: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	build(authgate.RoleAdmin).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager on admin route: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec = httptest.NewRecorder()
	build(authgate.RoleAdmin).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous on admin route: status = %d, want 401", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "192.0.2.1:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "192.0.2.1:1234", "203.0.113.9"},
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "203.0.113.9"}, "192.0.2.1:1234", "203.0.113.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
