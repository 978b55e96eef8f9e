package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashIsSalted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first == second {
		t.Fatal("expected two hashes of the same password to differ")
	}
	if first == "Passw0rd" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !h.Verify("Passw0rd", first) || !h.Verify("Passw0rd", second) {
		t.Fatal("expected both hashes to verify")
	}
}

func TestPasswordHasher_VerifyMismatch(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range []string{"passw0rd", "Passw0rd ", "", "Other1Pass"} {
		if h.Verify(p, hash) {
			t.Errorf("Verify(%q) = true, want false", p)
		}
	}
}

func TestPasswordHasher_MalformedHashNeverMatches(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, hash := range []string{"", "not-a-hash", "$2a$04$short"} {
		if h.Verify("Passw0rd", hash) {
			t.Errorf("Verify against %q = true, want false", hash)
		}
	}
}

func TestNewPasswordHasher_CostOutOfRange(t *testing.T) {
	if got := NewPasswordHasher(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewPasswordHasher(bcrypt.MaxCost + 1).cost; got != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewPasswordHasher(12).cost; got != 12 {
		t.Fatalf("cost = %d, want 12", got)
	}
}
