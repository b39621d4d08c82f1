// Package authgate implements the authentication and access-control core
// for HTTP services: credential login, signed access tokens, rotating
// refresh tokens, login throttling, and policy-based rate limiting.
//
// The package is organized around an Engine built through a Builder:
//
//	engine, err := authgate.New().
//		WithConfig(cfg).
//		WithUserProvider(users).
//		WithTokenStore(store).
//		Build()
//
// The Engine owns the full credential flow. Access tokens are stateless
// HMAC-signed JWTs issued by the jwt subpackage; refresh tokens are opaque
// single-use values persisted through a refresh.Store (in-memory, Postgres,
// or Redis). Login attempts are throttled per origin, and the ratelimit
// subpackage provides general token-bucket policies for the HTTP surface.
//
// Subpackages:
//
//	jwt        access token issue/verify
//	password   bcrypt hashing and verification
//	refresh    refresh token service and store implementations
//	ratelimit  token-bucket limiter and login attempt counter
//	middleware net/http middleware (auth context, rate limiting)
//	httpapi    ready-made /auth/* HTTP handlers
package authgate
