// Package ratelimit provides in-process request throttling: a token
// bucket limiter with interval refill for declarative per-route policies,
// and a fixed-window login attempt counter keyed by origin.
//
// State lives in an expiring in-memory cache, so limits are per process.
// Multi-node deployments get per-node budgets, which is the accepted
// trade-off for keeping the hot path free of network calls.
package ratelimit
