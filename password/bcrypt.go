package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Config selects the bcrypt work factor. Cost zero means
// bcrypt.DefaultCost.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies passwords. Safe for concurrent use.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates the cost and returns a hasher.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns the bcrypt hash of the password in modular crypt format.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether the password matches the stored hash. A mismatch
// is (false, nil); an error means the hash itself is unusable.
func (b *Bcrypt) Verify(plaintext, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
