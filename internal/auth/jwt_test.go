package auth_test

import (
	"testing"
	"time"

	"github.com/ascend-academy/api/internal/auth"
	"github.com/google/uuid"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	academyID := uuid.New()

	token, err := auth.GenerateToken(secret, time.Hour, userID, "coach@academy.test", "coach", academyID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.Email != "coach@academy.test" {
		t.Errorf("email: got %v", claims.Email)
	}
	if claims.Role != "coach" {
		t.Errorf("role: got %v, want coach", claims.Role)
	}
	if claims.AcademyID != academyID {
		t.Errorf("academy ID: got %v, want %v", claims.AcademyID, academyID)
	}
	if claims.Subject != userID.String() {
		t.Errorf("subject: got %v, want %v", claims.Subject, userID)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", time.Hour, uuid.New(), "a@b.c", "admin", uuid.Nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret-b", token); err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", -time.Minute, uuid.New(), "a@b.c", "admin", uuid.Nil)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected error validating expired token")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	if _, err := auth.ValidateToken("secret", "not-a-jwt"); err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
