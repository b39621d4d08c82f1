// Package middleware provides net/http middleware around the authgate
// Engine: bearer token authentication that populates the request context,
// a guard for routes that require an identity, and policy-based rate
// limiting with standard X-RateLimit headers.
package middleware
