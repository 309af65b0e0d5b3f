package security_test

import (
	"testing"

	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{BcryptCost: 4}

	hash, err := security.HashPassword("Very-secure-1", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("Very-secure-1", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	if _, err := security.VerifyPassword("whatever", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := security.HashPassword("", config.PasswordConfig{}); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestCheckStrength(t *testing.T) {
	cases := map[string]bool{
		"Abcdefg1": true,
		"abcdefg1": false,
		"ABCDEFG1": false,
		"Abcdefgh": false,
		"Ab1":      false,
	}
	for password, want := range cases {
		if got := security.CheckStrength(password) == nil; got != want {
			t.Fatalf("CheckStrength(%q) = %v, want %v", password, got, want)
		}
	}
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := security.GenerateTempPassword(12)
	if err != nil {
		t.Fatalf("GenerateTempPassword: %v", err)
	}
	if len(pw) != 12 {
		t.Fatalf("expected length 12, got %d", len(pw))
	}
	if err := security.CheckStrength(pw); err != nil {
		t.Fatalf("generated password is weak: %q", pw)
	}
	if _, err := security.GenerateTempPassword(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
