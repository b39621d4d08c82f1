package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the smallest HMAC key accepted, in bytes. Anything
// shorter is brute-forceable and rejected at construction.
const MinSecretLength = 32

// Config holds the token parameters. Instances are treated as immutable
// after NewManager.
type Config struct {
	// Secret is the HMAC-SHA256 signing and verification key.
	Secret []byte

	// AccessTTL is the token lifetime.
	AccessTTL time.Duration

	// Issuer is stamped into every token and required when parsing.
	Issuer string

	// Leeway tolerates clock skew during validation. Optional.
	Leeway time.Duration
}

// Claims is the access token payload. The subject is the account email;
// name and role are informational copies taken at issue time and may be
// empty.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access tokens. Safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates the config and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt: secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt: issuer is required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 5*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// Issue signs a token for the subject. Name and role are embedded as-is,
// empty values included, so verifiers always see both claims.
func (m *Manager) Issue(subject, name, role string) (string, error) {
	if subject == "" {
		return "", errors.New("jwt: subject is required")
	}
	now := m.now()
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Verify checks the token and returns its subject, or the empty string
// when the token is malformed, expired, mis-issued, or carries a bad
// signature. Callers that need the failure detail use Parse.
func (m *Manager) Verify(tokenStr string) string {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// Parse validates the token and returns its claims. Only HS256 is
// accepted; tokens with any other alg header fail before the signature is
// checked.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errors.New("jwt: token has no subject")
	}
	return claims, nil
}
