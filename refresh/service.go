package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmarq/authgate/internal"
)

// DefaultTTL is the refresh token lifetime when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// Config parameterizes a Service.
type Config struct {
	// TTL is the token lifetime measured from creation. Rotation always
	// issues a full-TTL token.
	TTL time.Duration

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

// Service implements the refresh token lifecycle over a Store. Safe for
// concurrent use when the Store is.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, cfg Config) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, ttl: ttl, now: now}
}

// Create mints and persists a new token for the owner.
func (s *Service) Create(ctx context.Context, ownerID string) (*Token, error) {
	value, err := internal.NewTokenValue()
	if err != nil {
		return nil, fmt.Errorf("refresh: generate token value: %w", err)
	}
	now := s.now()
	t := &Token{
		ID:        uuid.NewString(),
		Value:     value,
		OwnerID:   ownerID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate returns the active token behind the value or ErrInvalidToken.
// Expiry is checked here against the clock, so rows the sweeper has not
// reached yet are still rejected.
func (s *Service) Validate(ctx context.Context, value string) (*Token, error) {
	if !internal.WellFormedTokenValue(value) {
		return nil, invalidToken(ReasonMalformed)
	}
	t, err := s.store.GetActive(ctx, value)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if t.Expired(s.now()) {
		return nil, invalidToken(ReasonExpired)
	}
	return t, nil
}

// Rotate revokes the presented token and mints a replacement for the same
// owner in one pass. The revocation is a store-level compare-and-swap, so
// concurrent rotations of the same value produce exactly one winner; the
// losers get ErrInvalidToken.
func (s *Service) Rotate(ctx context.Context, value string) (*Token, error) {
	if !internal.WellFormedTokenValue(value) {
		return nil, invalidToken(ReasonMalformed)
	}
	now := s.now()
	prior, err := s.store.RevokeIfActive(ctx, value, now)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if prior.Expired(now) {
		// Claimed an expired row the sweeper missed. It is revoked now;
		// no replacement is issued.
		return nil, invalidToken(ReasonExpired)
	}
	return s.Create(ctx, prior.OwnerID)
}

// Revoke invalidates the token. Unknown and already revoked values are a
// successful no-op.
func (s *Service) Revoke(ctx context.Context, value string) error {
	if !internal.WellFormedTokenValue(value) {
		return nil
	}
	return s.store.Revoke(ctx, value, s.now())
}

// RevokeAll invalidates every active token of the owner.
func (s *Service) RevokeAll(ctx context.Context, ownerID string) (int64, error) {
	return s.store.RevokeAllForOwner(ctx, ownerID, s.now())
}

// SweepExpired deletes expired rows from the store.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

// StartSweeper runs SweepExpired every interval until the context is
// canceled or the returned stop function is called. Sweep failures are
// logged and the next tick retries; an unavailable store never kills the
// sweeper.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx); err != nil {
					log.Printf("authgate: refresh token sweep failed: %v", err)
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return invalidToken(ReasonMissingOrRevoked)
	}
	return err
}
