// Package jwt issues and verifies the HMAC-signed access tokens used by
// authgate. Tokens are stateless: everything a resource server needs is in
// the claims, and revocation happens through the short TTL rather than a
// denylist.
package jwt
