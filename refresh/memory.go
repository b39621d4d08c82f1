package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store. Suited to tests and
// single-node deployments; state is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	byValue map[string]*Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byValue: make(map[string]*Token)}
}

func (s *MemoryStore) Create(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.byValue[token.Value] = &cp
	return nil
}

func (s *MemoryStore) GetActive(_ context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byValue[value]
	if !ok || t.Revoked {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) RevokeIfActive(_ context.Context, value string, now time.Time) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byValue[value]
	if !ok || t.Revoked {
		return nil, ErrNotFound
	}
	prior := *t
	t.Revoked = true
	t.RevokedAt = now
	return &prior, nil
}

func (s *MemoryStore) Revoke(_ context.Context, value string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byValue[value]; ok && !t.Revoked {
		t.Revoked = true
		t.RevokedAt = now
	}
	return nil
}

func (s *MemoryStore) RevokeAllForOwner(_ context.Context, ownerID string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.byValue {
		if t.OwnerID == ownerID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = now
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for value, t := range s.byValue {
		if t.Expired(now) {
			delete(s.byValue, value)
			n++
		}
	}
	return n, nil
}

// Len reports the number of rows, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byValue)
}
