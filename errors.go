package authgate

import "errors"

// Sentinel errors returned by Engine operations. Callers should compare
// with errors.Is; wrapped variants carry transport or store detail.
var (
	// ErrInvalidCredentials is returned for every login failure caused by
	// the caller: unknown email, wrong password, empty input. The causes
	// are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLoginRateLimited is returned when an origin has exceeded the
	// failed-login budget for the current window.
	ErrLoginRateLimited = errors.New("too many login attempts")

	// ErrRefreshInvalid is returned when a refresh token is unknown,
	// already used, revoked, or expired. As with login failures, the
	// caller cannot tell the causes apart.
	ErrRefreshInvalid = errors.New("invalid refresh token")

	// ErrUnauthorized is returned by Authenticate when the access token
	// is missing, malformed, expired, or signed with the wrong key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStoreUnavailable is returned when the refresh token store cannot
	// be reached. It maps to 503 at the HTTP surface.
	ErrStoreUnavailable = errors.New("token store unavailable")

	// ErrEngineClosed is returned once Close has been called.
	ErrEngineClosed = errors.New("engine closed")
)
