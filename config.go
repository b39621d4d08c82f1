package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/tmarq/authgate/jwt"
)

/* ==== TOP-LEVEL CONFIG ==== */

// Config collects every tunable of the Engine. Zero values are filled in
// from defaultConfig by the Builder; only JWT.Secret has no default and
// must be provided by the caller.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Refresh  RefreshConfig
	Login    LoginLimitConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/* ==== SECTION CONFIGS ==== */

// JWTConfig controls access token issuance and verification.
type JWTConfig struct {
	// Secret is the HMAC-SHA256 signing key. Must be at least
	// jwt.MinSecretLength bytes; Validate rejects anything shorter.
	Secret []byte

	// AccessTTL is the access token lifetime.
	AccessTTL time.Duration

	// Issuer is written into and required from every token.
	Issuer string

	// Leeway tolerates clock skew when validating exp/iat.
	Leeway time.Duration
}

// PasswordConfig controls credential hashing.
type PasswordConfig struct {
	// BcryptCost selects the bcrypt work factor. Zero means the library
	// default.
	BcryptCost int
}

// RefreshConfig controls refresh token lifetime and cleanup.
type RefreshConfig struct {
	// TTL is the refresh token lifetime, measured from creation. Rotation
	// issues a fresh token with a full TTL.
	TTL time.Duration

	// SweepInterval is how often the background sweeper deletes expired
	// rows from the store.
	SweepInterval time.Duration
}

// LoginLimitConfig throttles login attempts per origin.
type LoginLimitConfig struct {
	// Disabled turns the login throttle off entirely.
	Disabled bool

	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int

	// Window is the fixed counting window, anchored at the first attempt.
	Window time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	// Enabled switches audit emission on. Without a sink events are
	// dropped even when enabled.
	Enabled bool

	// BufferSize is the dispatcher channel capacity.
	BufferSize int

	// DropIfFull drops events instead of blocking the auth path when the
	// buffer is full. Strongly recommended.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/* ==== DEFAULTS ==== */

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 2 * time.Hour,
			Issuer:    "authgate",
			Leeway:    30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:           7 * 24 * time.Hour,
			SweepInterval: 24 * time.Hour,
		},
		Login: LoginLimitConfig{
			MaxAttempts: 5,
			Window:      time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

/* ==== VALIDATION ==== */

// Validate checks the config for values that would produce an insecure or
// non-functional engine. The Builder calls it during Build; processes
// loading config at startup should treat an error as fatal.
func (c Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("authgate: JWT secret is required")
	}
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("authgate: JWT secret must be at least %d bytes, got %d", jwt.MinSecretLength, len(c.JWT.Secret))
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("authgate: access token TTL must be positive")
	}
	if c.JWT.Issuer == "" {
		return errors.New("authgate: JWT issuer must not be empty")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 5*time.Minute {
		return errors.New("authgate: JWT leeway must be between 0 and 5m")
	}
	if c.Refresh.TTL <= 0 {
		return errors.New("authgate: refresh token TTL must be positive")
	}
	if c.Refresh.SweepInterval <= 0 {
		return errors.New("authgate: refresh sweep interval must be positive")
	}
	if !c.Login.Disabled {
		if c.Login.MaxAttempts <= 0 {
			return errors.New("authgate: login attempt limit must be positive")
		}
		if c.Login.Window <= 0 {
			return errors.New("authgate: login window must be positive")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("authgate: audit buffer size must be positive")
	}
	return nil
}

// cloneConfig deep-copies the secret so callers cannot mutate key material
// held by a running engine.
func cloneConfig(c Config) Config {
	out := c
	if c.JWT.Secret != nil {
		out.JWT.Secret = make([]byte, len(c.JWT.Secret))
		copy(out.JWT.Secret, c.JWT.Secret)
	}
	return out
}
