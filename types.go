package authgate

import "context"

// Role is the coarse access level attached to an identity and embedded in
// access tokens. Values outside the declared set are passed through
// unchanged; authorization decisions on unknown roles are the caller's.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleUser       Role = "user"
)

// Identity is the authentication view of a user account. PasswordHash is
// the stored bcrypt hash; it never leaves the process.
type Identity struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}

// TokenPair is the result of a successful login or refresh: a short-lived
// signed access token and a long-lived opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserProvider supplies identities from the host application's user store.
// Implementations return an error when no account matches; the Engine maps
// any lookup failure to ErrInvalidCredentials or ErrUnauthorized without
// inspecting it.
type UserProvider interface {
	LookupByEmail(ctx context.Context, email string) (Identity, error)
	LookupByID(ctx context.Context, id string) (Identity, error)
}
