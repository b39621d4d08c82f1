// Package redisstore persists refresh tokens in Redis. Each token is a
// JSON record under a value-derived key with a TTL matching its expiry, so
// Redis itself handles expired-row deletion; a per-owner set supports
// revoke-all. Rotation atomicity comes from a Lua script that revokes the
// record in a single server-side step.
package redisstore
