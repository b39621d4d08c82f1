package refresh

import "time"

// Token is one refresh token row. Value is the opaque secret handed to the
// client; ID exists for correlation in logs and storage and never leaves
// the server.
type Token struct {
	ID        string
	Value     string
	OwnerID   string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt time.Time
}

// Expired reports whether the token's lifetime has passed. Expiry is
// checked against the wall clock on use; expired rows may still exist in
// the store until the sweeper removes them.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Active reports whether the token can still be used: not revoked and not
// expired.
func (t *Token) Active(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}
