package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmarq/authgate/refresh"
)

// revokeScript flips revoked on the token record and returns its prior
// JSON, or false when the record is missing or already revoked. Running
// server-side makes the check-and-set atomic; the key TTL is preserved so
// revoked records still disappear at their original expiry.
var revokeScript = redis.NewScript(`
local data = redis.call("GET", KEYS[1])
if not data then
	return false
end
local tok = cjson.decode(data)
if tok.revoked then
	return false
end
tok.revoked = true
tok.revoked_at = tonumber(ARGV[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl and ttl > 0 then
	redis.call("SET", KEYS[1], cjson.encode(tok), "PX", ttl)
else
	redis.call("SET", KEYS[1], cjson.encode(tok))
end
return data
`)

// record is the stored JSON shape. Timestamps are unix milliseconds so the
// Lua side can treat them as plain numbers.
type record struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	OwnerID   string `json:"owner_id"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
	Revoked   bool   `json:"revoked"`
	RevokedAt int64  `json:"revoked_at"`
}

func toRecord(t *refresh.Token) record {
	r := record{
		ID:        t.ID,
		Value:     t.Value,
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt.UnixMilli(),
		ExpiresAt: t.ExpiresAt.UnixMilli(),
		Revoked:   t.Revoked,
	}
	if !t.RevokedAt.IsZero() {
		r.RevokedAt = t.RevokedAt.UnixMilli()
	}
	return r
}

func (r record) toToken() *refresh.Token {
	t := &refresh.Token{
		ID:        r.ID,
		Value:     r.Value,
		OwnerID:   r.OwnerID,
		CreatedAt: time.UnixMilli(r.CreatedAt),
		ExpiresAt: time.UnixMilli(r.ExpiresAt),
		Revoked:   r.Revoked,
	}
	if r.RevokedAt != 0 {
		t.RevokedAt = time.UnixMilli(r.RevokedAt)
	}
	return t
}

// Store implements refresh.Store on Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New returns a Store. prefix namespaces all keys; empty means "authgate".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "authgate"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) tokenKey(value string) string {
	return s.prefix + ":tok:" + value
}

func (s *Store) ownerKey(ownerID string) string {
	return s.prefix + ":own:" + ownerID
}

func (s *Store) Create(ctx context.Context, token *refresh.Token) error {
	data, err := json.Marshal(toRecord(token))
	if err != nil {
		return fmt.Errorf("redisstore: marshal token: %w", err)
	}
	ttl := token.ExpiresAt.Sub(token.CreatedAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token.Value), data, ttl)
	pipe.SAdd(ctx, s.ownerKey(token.OwnerID), token.Value)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("create token", err)
	}

	// Keep the owner set alive at least as long as its newest token.
	cur, err := s.client.PTTL(ctx, s.ownerKey(token.OwnerID)).Result()
	if err == nil && cur < ttl {
		s.client.PExpire(ctx, s.ownerKey(token.OwnerID), ttl)
	}
	return nil
}

func (s *Store) GetActive(ctx context.Context, value string) (*refresh.Token, error) {
	data, err := s.client.Get(ctx, s.tokenKey(value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, refresh.ErrNotFound
		}
		return nil, storeErr("get token", err)
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, storeErr("decode token", err)
	}
	if r.Revoked {
		return nil, refresh.ErrNotFound
	}
	return r.toToken(), nil
}

func (s *Store) RevokeIfActive(ctx context.Context, value string, now time.Time) (*refresh.Token, error) {
	res, err := revokeScript.Run(ctx, s.client, []string{s.tokenKey(value)}, now.UnixMilli()).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, refresh.ErrNotFound
		}
		return nil, storeErr("revoke token", err)
	}
	var r record
	if err := json.Unmarshal([]byte(res), &r); err != nil {
		return nil, storeErr("decode token", err)
	}
	return r.toToken(), nil
}

func (s *Store) Revoke(ctx context.Context, value string, now time.Time) error {
	err := revokeScript.Run(ctx, s.client, []string{s.tokenKey(value)}, now.UnixMilli()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return storeErr("revoke token", err)
	}
	return nil
}

func (s *Store) RevokeAllForOwner(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	values, err := s.client.SMembers(ctx, s.ownerKey(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, storeErr("list owner tokens", err)
	}
	var n int64
	for _, value := range values {
		err := revokeScript.Run(ctx, s.client, []string{s.tokenKey(value)}, now.UnixMilli()).Err()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return n, storeErr("revoke token", err)
		}
		n++
	}
	return n, nil
}

// DeleteExpired prunes owner-set members whose token keys Redis has
// already expired. The token records themselves are removed by Redis TTL;
// this pass only keeps the owner sets from growing without bound.
func (s *Store) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64
	iter := s.client.Scan(ctx, 0, s.prefix+":own:*", 100).Iterator()
	for iter.Next(ctx) {
		ownerKey := iter.Val()
		values, err := s.client.SMembers(ctx, ownerKey).Result()
		if err != nil {
			return pruned, storeErr("list owner tokens", err)
		}
		for _, value := range values {
			exists, err := s.client.Exists(ctx, s.tokenKey(value)).Result()
			if err != nil {
				return pruned, storeErr("check token", err)
			}
			if exists == 0 {
				if err := s.client.SRem(ctx, ownerKey, value).Err(); err != nil {
					return pruned, storeErr("prune owner set", err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, storeErr("scan owner sets", err)
	}
	return pruned, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", refresh.ErrStoreUnavailable, op, err)
}
