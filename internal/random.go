package internal

import (
	"crypto/rand"
	"encoding/base64"
)

// tokenValueRawSize is the entropy of a refresh token value in bytes.
const tokenValueRawSize = 48

// NewTokenValue returns an opaque, URL-safe refresh token value with 384
// bits of entropy. The value carries no structure; the store row is the
// only authority on its meaning.
func NewTokenValue() (string, error) {
	var raw [tokenValueRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// WellFormedTokenValue reports whether s could have been produced by
// NewTokenValue. Stores use it to reject garbage before touching the
// backend.
func WellFormedTokenValue(s string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(raw) == tokenValueRawSize
}
