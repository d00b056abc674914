package auth

import (
	"testing"
	"time"
)

func TestSignParseRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := SignJWT(secret, "id-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != "id-1" || claims.Username != "alice" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := SignJWT([]byte("right"), "id-1", "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT([]byte("wrong"), token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignJWT(secret, "id-1", "alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT(secret, token); err == nil {
		t.Fatal("expired token accepted")
	}
}
