// Package refresh implements opaque, single-use refresh tokens with
// atomic rotation. The Store is the single source of truth for token
// state; the Service layers lifetime and rotation semantics on top of any
// Store implementation (in-memory here, Postgres and Redis in the
// subpackages).
//
// Rotation is the security-critical operation: the presented token is
// revoked and replaced in one atomic step, so a stolen-then-replayed token
// loses the race exactly once and every later replay fails.
package refresh
