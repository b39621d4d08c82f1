package authgate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tmarq/authgate/jwt"
	"github.com/tmarq/authgate/password"
	"github.com/tmarq/authgate/ratelimit"
	"github.com/tmarq/authgate/refresh"
)

// Engine orchestrates the credential flows: login, token refresh, logout,
// and access token authentication. Construct it with the Builder; the zero
// value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config       Config
	users        UserProvider
	passwords    *password.Bcrypt
	tokens       *jwt.Manager
	refreshSvc   *refresh.Service
	loginLimiter *ratelimit.LoginLimiter
	audit        *auditDispatcher
	metrics      *Metrics
	closed       atomic.Bool
}

// Login verifies the credentials and, on success, issues an access token
// and a fresh refresh token. Every caller-caused failure returns
// ErrInvalidCredentials; throttled origins get ErrLoginRateLimited before
// credentials are examined. A successful login clears the origin's
// attempt counter.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (TokenPair, error) {
	if e.closed.Load() {
		return TokenPair{}, ErrEngineClosed
	}

	origin := clientIPFromContext(ctx)
	if e.loginLimiter != nil && !e.loginLimiter.Allow(origin) {
		e.metrics.inc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", email, ErrLoginRateLimited, nil)
		return TokenPair{}, ErrLoginRateLimited
	}

	if email == "" || plaintext == "" {
		return TokenPair{}, e.failLogin(ctx, email, "empty_input")
	}

	identity, err := e.users.LookupByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, e.failLogin(ctx, email, "unknown_user")
	}

	ok, err := e.passwords.Verify(plaintext, identity.PasswordHash)
	if err != nil {
		return TokenPair{}, e.failLogin(ctx, email, "unusable_hash")
	}
	if !ok {
		return TokenPair{}, e.failLogin(ctx, email, "wrong_password")
	}

	access, err := e.tokens.Issue(identity.Email, identity.Name, string(identity.Role))
	if err != nil {
		return TokenPair{}, fmt.Errorf("authgate: issue access token: %w", err)
	}

	rt, err := e.refreshSvc.Create(ctx, identity.ID)
	if err != nil {
		return TokenPair{}, e.mapStoreErr(err)
	}

	if e.loginLimiter != nil {
		e.loginLimiter.Reset(origin)
	}
	e.metrics.inc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, identity.Email, nil, nil)
	return TokenPair{AccessToken: access, RefreshToken: rt.Value}, nil
}

func (e *Engine) failLogin(ctx context.Context, email, reason string) error {
	e.metrics.inc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

// Refresh rotates the refresh token: the presented token is atomically
// revoked and a new pair is issued. Replaying a rotated, revoked, or
// expired token returns ErrRefreshInvalid; the concrete cause is recorded
// in the audit trail only.
func (e *Engine) Refresh(ctx context.Context, refreshValue string) (TokenPair, error) {
	if e.closed.Load() {
		return TokenPair{}, ErrEngineClosed
	}
	if refreshValue == "" {
		return TokenPair{}, e.failRefresh(ctx, "", "empty_token")
	}

	rt, err := e.refreshSvc.Rotate(ctx, refreshValue)
	if err != nil {
		if errors.Is(err, refresh.ErrInvalidToken) {
			return TokenPair{}, e.failRefresh(ctx, "", refresh.Reason(err))
		}
		return TokenPair{}, e.mapStoreErr(err)
	}

	identity, err := e.users.LookupByID(ctx, rt.OwnerID)
	if err != nil {
		// The account vanished between rotation steps; retire the token
		// we just minted.
		_ = e.refreshSvc.Revoke(ctx, rt.Value)
		return TokenPair{}, e.failRefresh(ctx, rt.OwnerID, "unknown_owner")
	}

	access, err := e.tokens.Issue(identity.Email, identity.Name, string(identity.Role))
	if err != nil {
		_ = e.refreshSvc.Revoke(ctx, rt.Value)
		return TokenPair{}, fmt.Errorf("authgate: issue access token: %w", err)
	}

	e.metrics.inc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, identity.ID, identity.Email, nil, nil)
	return TokenPair{AccessToken: access, RefreshToken: rt.Value}, nil
}

func (e *Engine) failRefresh(ctx context.Context, userID, reason string) error {
	e.metrics.inc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, "", ErrRefreshInvalid, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrRefreshInvalid
}

// Logout revokes the presented refresh token. Unknown or already revoked
// tokens are not an error; logout is idempotent.
func (e *Engine) Logout(ctx context.Context, refreshValue string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if refreshValue == "" {
		return nil
	}
	if err := e.refreshSvc.Revoke(ctx, refreshValue); err != nil {
		return e.mapStoreErr(err)
	}
	e.metrics.inc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
	return nil
}

// LogoutAll revokes every active refresh token owned by the user,
// invalidating all their sessions at once.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	n, err := e.refreshSvc.RevokeAll(ctx, userID)
	if err != nil {
		return e.mapStoreErr(err)
	}
	e.metrics.inc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprintf("%d", n)}
	})
	return nil
}

// Authenticate verifies an access token and resolves the current identity
// behind it. The role comes from the user store, not from the token, so a
// role change takes effect on the next request rather than at the next
// token issue. Any verification or lookup failure returns ErrUnauthorized.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	if e.closed.Load() {
		return Identity{}, ErrEngineClosed
	}
	email := e.tokens.Verify(accessToken)
	if email == "" {
		e.metrics.inc(MetricAuthenticateFailure)
		return Identity{}, ErrUnauthorized
	}
	identity, err := e.users.LookupByEmail(ctx, email)
	if err != nil {
		e.metrics.inc(MetricAuthenticateFailure)
		return Identity{}, ErrUnauthorized
	}
	e.metrics.inc(MetricAuthenticateSuccess)
	return identity, nil
}

// RemainingLoginAttempts reports how many attempts the calling origin has
// left in the current window. Returns the full budget when throttling is
// disabled.
func (e *Engine) RemainingLoginAttempts(ctx context.Context) int {
	if e.loginLimiter == nil {
		return e.config.Login.MaxAttempts
	}
	return e.loginLimiter.Remaining(clientIPFromContext(ctx))
}

// LoginRetryAfter reports how long the calling origin must wait before the
// attempt window resets.
func (e *Engine) LoginRetryAfter(ctx context.Context) time.Duration {
	if e.loginLimiter == nil {
		return 0
	}
	return e.loginLimiter.RetryAfter(clientIPFromContext(ctx))
}

// StartSweeper launches the background job that deletes expired refresh
// tokens at the configured interval. The returned stop function blocks
// until the sweeper goroutine exits; it is safe to call more than once.
func (e *Engine) StartSweeper(ctx context.Context) (stop func()) {
	return e.refreshSvc.StartSweeper(ctx, e.config.Refresh.SweepInterval)
}

// Metrics exposes the engine counters. Returns a usable no-op collector
// even when metrics are disabled.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Close shuts the engine down. Pending audit events are drained before
// Close returns; subsequent engine calls fail with ErrEngineClosed.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	if e.audit != nil {
		e.audit.close()
	}
}

func (e *Engine) mapStoreErr(err error) error {
	if errors.Is(err, refresh.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
