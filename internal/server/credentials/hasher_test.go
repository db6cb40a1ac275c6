package credentials

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secr3t!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if hash == "Secr3t!" || hash == "" {
		t.Fatalf("hash must be opaque, got %q", hash)
	}

	if !h.Verify("Secr3t!", hash) {
		t.Fatalf("correct password must verify")
	}
	if h.Verify("wrong", hash) {
		t.Fatalf("wrong password must not verify")
	}
}

func TestHash_Salted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("Secr3t!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("Secr3t!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are identical")
	}
}

func TestNewHasher_CostOutOfRange(t *testing.T) {
	h := NewHasher(1000)

	hash, err := h.Hash("Secr3t!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost error: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost %d, got %d", bcrypt.DefaultCost, cost)
	}
}
