package refresh

import "errors"

var (
	// ErrInvalidToken covers every caller-caused validation failure:
	// unknown value, revoked, rotated, expired. The error message is
	// identical for all causes; the internal reason is available through
	// Reason for logging and audit only.
	ErrInvalidToken = errors.New("invalid refresh token")

	// ErrNotFound is returned by stores when no active row matches.
	ErrNotFound = errors.New("refresh token not found")

	// ErrStoreUnavailable wraps backend connectivity failures.
	ErrStoreUnavailable = errors.New("refresh token store unavailable")
)

// Internal reasons attached to ErrInvalidToken. A token that was revoked
// or rotated is indistinguishable from one that never existed, matching
// the store's active-row queries.
const (
	ReasonMissingOrRevoked = "missing_or_revoked"
	ReasonExpired          = "expired"
	ReasonMalformed        = "malformed"
)

type invalidTokenError struct {
	reason string
}

func (e *invalidTokenError) Error() string { return ErrInvalidToken.Error() }

func (e *invalidTokenError) Unwrap() error { return ErrInvalidToken }

func invalidToken(reason string) error {
	return &invalidTokenError{reason: reason}
}

// Reason extracts the internal cause from an ErrInvalidToken. Returns ""
// for any other error. The value is for logs and audit trails; it must
// never reach an API response.
func Reason(err error) string {
	var ite *invalidTokenError
	if errors.As(err, &ite) {
		return ite.reason
	}
	return ""
}
