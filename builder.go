package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/tmarq/authgate/jwt"
	"github.com/tmarq/authgate/password"
	"github.com/tmarq/authgate/ratelimit"
	"github.com/tmarq/authgate/refresh"
)

// Builder assembles an Engine. Configure it with the WithX methods and
// call Build once; a Builder is not safe for concurrent use.
type Builder struct {
	config Config
	users  UserProvider
	store  refresh.Store
	sink   AuditSink
	clock  func() time.Time
}

// New returns a Builder preloaded with defaults. A user provider, a token
// store, and a JWT secret must still be supplied before Build succeeds.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		clock:  time.Now,
	}
}

// WithConfig replaces the configuration. Zero-valued fields are filled in
// from defaults during Build, so callers only need to set what they
// change.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserProvider supplies the application's user store.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.users = p
	return b
}

// WithTokenStore supplies the refresh token store. The store is the single
// source of truth for refresh token state; use refresh.NewMemoryStore for
// tests and the postgres or redisstore subpackages in production.
func (b *Builder) WithTokenStore(s refresh.Store) *Builder {
	b.store = s
	return b
}

// WithAuditSink supplies the destination for audit events and implicitly
// enables auditing.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	b.sink = s
	b.config.Audit.Enabled = true
	return b
}

// WithClock overrides the time source used by the refresh service and the
// login limiter. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.clock = now
	}
	return b
}

// Build validates the configuration and wires the Engine. The returned
// Engine owns an audit dispatcher goroutine when a sink is configured;
// call Close to release it.
func (b *Builder) Build() (*Engine, error) {
	cfg := cloneConfig(applyDefaults(b.config))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("authgate: user provider is required")
	}
	if b.store == nil {
		return nil, errors.New("authgate: refresh token store is required")
	}

	hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Password.BcryptCost})
	if err != nil {
		return nil, fmt.Errorf("authgate: password hasher: %w", err)
	}

	manager, err := jwt.NewManager(jwt.Config{
		Secret:    cfg.JWT.Secret,
		AccessTTL: cfg.JWT.AccessTTL,
		Issuer:    cfg.JWT.Issuer,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("authgate: jwt manager: %w", err)
	}

	e := &Engine{
		config:    cfg,
		users:     b.users,
		passwords: hasher,
		tokens:    manager,
		refreshSvc: refresh.NewService(b.store, refresh.Config{
			TTL:   cfg.Refresh.TTL,
			Clock: b.clock,
		}),
		metrics: newMetrics(cfg.Metrics.Enabled),
	}

	if !cfg.Login.Disabled {
		e.loginLimiter = ratelimit.NewLoginLimiter(ratelimit.LoginConfig{
			MaxAttempts: cfg.Login.MaxAttempts,
			Window:      cfg.Login.Window,
			Clock:       b.clock,
		})
	}

	if cfg.Audit.Enabled && b.sink != nil {
		e.audit = newAuditDispatcher(b.sink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	return e, nil
}

func applyDefaults(cfg Config) Config {
	def := defaultConfig()
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = def.JWT.Issuer
	}
	if cfg.JWT.Leeway == 0 {
		cfg.JWT.Leeway = def.JWT.Leeway
	}
	if cfg.Refresh.TTL == 0 {
		cfg.Refresh.TTL = def.Refresh.TTL
	}
	if cfg.Refresh.SweepInterval == 0 {
		cfg.Refresh.SweepInterval = def.Refresh.SweepInterval
	}
	if cfg.Login.MaxAttempts == 0 {
		cfg.Login.MaxAttempts = def.Login.MaxAttempts
	}
	if cfg.Login.Window == 0 {
		cfg.Login.Window = def.Login.Window
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
		cfg.Audit.DropIfFull = def.Audit.DropIfFull
	}
	return cfg
}
