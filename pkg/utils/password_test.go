package utils

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("expected hashing to succeed, got error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Fatal("expected the original password to verify")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Fatal("expected a wrong password to fail verification")
	}
	if CheckPasswordHash("correct horse battery staple", "not-a-bcrypt-hash") {
		t.Fatal("expected garbage hash to fail verification")
	}
}
