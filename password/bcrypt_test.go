package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}

	hash, err := b.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash %q is not modular crypt format", hash)
	}

	ok, err := b.Verify("correct-horse", hash)
	if err != nil || !ok {
		t.Fatalf("Verify = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = b.Verify("wrong", hash)
	if err != nil {
		t.Fatalf("mismatch should not error: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashesAreSalted(t *testing.T) {
	b, _ := NewBcrypt(Config{Cost: bcrypt.MinCost})
	h1, _ := b.Hash("same")
	h2, _ := b.Hash("same")
	if h1 == h2 {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyUnusableHash(t *testing.T) {
	b, _ := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if _, err := b.Verify("anything", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestNewBcryptRejectsBadCost(t *testing.T) {
	if _, err := NewBcrypt(Config{Cost: bcrypt.MaxCost + 1}); err == nil {
		t.Fatal("expected error for excessive cost")
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	b, _ := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if _, err := b.Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
