package refresh

import (
	"context"
	"time"
)

// Store persists refresh tokens. Implementations must make RevokeIfActive
// atomic: under concurrent calls for the same value, exactly one caller
// receives the token and the rest get ErrNotFound. Transient backend
// failures are reported as errors wrapping ErrStoreUnavailable.
type Store interface {
	// Create inserts a new token row.
	Create(ctx context.Context, token *Token) error

	// GetActive returns the non-revoked row for the value, or ErrNotFound.
	// Revoked rows and unknown values are indistinguishable.
	GetActive(ctx context.Context, value string) (*Token, error)

	// RevokeIfActive atomically marks the active row revoked and returns
	// its prior state. ErrNotFound when no active row matches. This is the
	// compare-and-swap behind single-use rotation.
	RevokeIfActive(ctx context.Context, value string, now time.Time) (*Token, error)

	// Revoke marks the row revoked if it is active. Missing or already
	// revoked rows are a no-op, not an error.
	Revoke(ctx context.Context, value string, now time.Time) error

	// RevokeAllForOwner revokes every active token owned by ownerID and
	// reports how many rows changed.
	RevokeAllForOwner(ctx context.Context, ownerID string, now time.Time) (int64, error)

	// DeleteExpired removes rows whose lifetime has passed and reports how
	// many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
