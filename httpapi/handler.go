package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tmarq/authgate"
	"github.com/tmarq/authgate/middleware"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"

	maxBodyBytes = 1 << 20
)

// Config tunes the HTTP handlers.
type Config struct {
	// SecureCookies marks cookies Secure. Enable everywhere TLS
	// terminates in front of the handler.
	SecureCookies bool

	// AccessCookieTTL and RefreshCookieTTL set cookie Max-Age. They
	// should match the engine's token TTLs; zero values default to 2h
	// and 168h.
	AccessCookieTTL  time.Duration
	RefreshCookieTTL time.Duration
}

// Handler serves the /auth/* endpoints. Register mounts them on a mux;
// wrap the mux with middleware.Authenticate so logout-all can see the
// caller's identity.
type Handler struct {
	engine *authgate.Engine
	cfg    Config
}

func New(engine *authgate.Engine, cfg Config) *Handler {
	if cfg.AccessCookieTTL <= 0 {
		cfg.AccessCookieTTL = 2 * time.Hour
	}
	if cfg.RefreshCookieTTL <= 0 {
		cfg.RefreshCookieTTL = 7 * 24 * time.Hour
	}
	return &Handler{engine: engine, cfg: cfg}
}

// Register mounts the auth endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/logout-all", h.LogoutAll)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair. Failures are uniform 401s
// regardless of cause; throttled origins get 429 with Retry-After.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := requestContext(r)

	pair, err := h.engine.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrLoginRateLimited):
			secs := retrySeconds(h.engine.LoginRetryAfter(ctx))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":             "too many login attempts",
				"remainingAttempts": h.engine.RemainingLoginAttempts(ctx),
			})
		case errors.Is(err, authgate.ErrInvalidCredentials):
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.engine.RemainingLoginAttempts(ctx)))
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, authgate.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the refresh token, taken from the JSON body or the
// refresh cookie, and returns a new pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value := req.RefreshToken
	if value == "" {
		value = cookieValue(r, refreshCookieName)
	}
	if value == "" {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	ctx := requestContext(r)

	pair, err := h.engine.Refresh(ctx, value)
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrRefreshInvalid):
			h.clearTokenCookies(w)
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, authgate.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

// Logout revokes the presented refresh token and clears cookies. Unknown
// tokens still log out successfully.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value := req.RefreshToken
	if value == "" {
		value = cookieValue(r, refreshCookieName)
	}
	ctx := requestContext(r)

	if err := h.engine.Logout(ctx, value); err != nil {
		if errors.Is(err, authgate.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll revokes every session of the authenticated caller. Requires
// middleware.Authenticate upstream; anonymous callers get 401.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ctx := requestContext(r)

	if err := h.engine.LogoutAll(ctx, identity.ID); err != nil {
		if errors.Is(err, authgate.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out everywhere"})
}

func (h *Handler) setTokenCookies(w http.ResponseWriter, pair authgate.TokenPair) {
	http.SetCookie(w, h.cookie(accessCookieName, pair.AccessToken, h.cfg.AccessCookieTTL))
	http.SetCookie(w, h.cookie(refreshCookieName, pair.RefreshToken, h.cfg.RefreshCookieTTL))
}

func (h *Handler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(accessCookieName, "", -time.Second))
	http.SetCookie(w, h.cookie(refreshCookieName, "", -time.Second))
}

func (h *Handler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl / time.Second)
	}
	return c
}

func requestContext(r *http.Request) context.Context {
	ctx := authgate.WithClientIP(r.Context(), middleware.ClientIP(r))
	return authgate.WithUserAgent(ctx, r.UserAgent())
}

// decodeBody parses the JSON body into dst. Empty bodies are allowed so
// cookie-only clients can POST without a payload.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
