package application

import (
	"errors"
	"strings"
	"testing"
)

// Smaller parameters keep the derivation fast in tests.
var testArgon2idParams = Argon2idParams{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestCreatePasswordHash_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct-horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	if err := VerifyPassword(hash, "correct-horse"); err != nil {
		t.Fatalf("VerifyPassword rejected the original password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreatePasswordHash_UniqueSalts(t *testing.T) {
	t.Parallel()

	first, err := CreatePasswordHash("correct-horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	second, err := CreatePasswordHash("correct-horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if first == second {
		t.Fatalf("hashes of the same password must differ by salt")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "plain text", hash: "not-a-hash"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "missing sections", hash: "$argon2id$v=19$m=8192,t=1,p=1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := VerifyPassword(tt.hash, "whatever"); !errors.Is(err, ErrInvalidPasswordHash) {
				t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
			}
		})
	}
}

func TestVerifyPassword_IncompatibleVersion(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct-horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	tampered := strings.Replace(hash, "$v=19$", "$v=18$", 1)

	if err := VerifyPassword(tampered, "correct-horse"); !errors.Is(err, ErrIncompatiblePasswordVersion) {
		t.Fatalf("expected ErrIncompatiblePasswordVersion, got %v", err)
	}
}
