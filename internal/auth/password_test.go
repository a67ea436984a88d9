package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, plaintext := range []string{"correct horse battery staple", "p", "ünïcødé-パスワード", strings.Repeat("x", 72)} {
		hash, err := h.Hash(plaintext)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", plaintext, err)
		}
		if hash == plaintext || strings.Contains(hash, plaintext) {
			t.Errorf("Hash(%q) leaks the plaintext", plaintext)
		}
		if !h.Verify(plaintext, hash) {
			t.Errorf("Verify(%q) = false for its own hash", plaintext)
		}
		if h.Verify(plaintext[:len(plaintext)-1]+"#", hash) {
			t.Errorf("Verify() = true for a plaintext of %q with its last byte replaced", plaintext)
		}
		if h.Verify("X"+plaintext[1:], hash) {
			t.Errorf("Verify() = true for a plaintext of %q with its first byte replaced", plaintext)
		}
	}
}

func TestPasswordHasher_Salted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Error("Hash() produced identical hashes for the same plaintext")
	}
}

func TestPasswordHasher_VerifyNeverFailsLoudly(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	for _, hash := range []string{"", "not-a-hash", "$2a$10$short", "$2a$99$" + strings.Repeat("a", 53)} {
		if h.Verify("anything", hash) {
			t.Errorf("Verify() = true for corrupt hash %q", hash)
		}
	}
}

func TestPasswordHasher_CostChangeKeepsOldHashes(t *testing.T) {
	old := NewPasswordHasher(bcrypt.MinCost)
	hash, err := old.Hash("long-lived-password")
	if err != nil {
		t.Fatal(err)
	}

	raised := NewPasswordHasher(bcrypt.MinCost + 2)
	if !raised.Verify("long-lived-password", hash) {
		t.Error("a hasher with a higher cost rejected a hash issued at the old cost")
	}
	newHash, _ := raised.Hash("long-lived-password")
	if cost, _ := bcrypt.Cost([]byte(newHash)); cost != bcrypt.MinCost+2 {
		t.Errorf("new hash cost = %d, want %d", cost, bcrypt.MinCost+2)
	}
}

func TestPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	for _, cost := range []int{0, 3, 32, 100} {
		if got := NewPasswordHasher(cost).Cost(); got != DefaultBcryptCost {
			t.Errorf("NewPasswordHasher(%d).Cost() = %d, want %d", cost, got, DefaultBcryptCost)
		}
	}
}

func TestPasswordHasher_TooLong(t *testing.T) {
	if _, err := NewPasswordHasher(bcrypt.MinCost).Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("Hash() expected error for a 73-byte password, got nil")
	}
}

func TestPasswordHasher_DummyVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	if h.DummyVerify("whatever") {
		t.Error("DummyVerify() = true")
	}
	if h.DummyVerify(dummyPlaintext) {
		t.Error("DummyVerify() = true for the dummy plaintext itself")
	}
}
