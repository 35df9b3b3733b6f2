package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)

	tok, err := ti.Issue("u-1", model.RoleOrganizer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ti.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "u-1")
	}
	if claims.Role != model.RoleOrganizer {
		t.Errorf("Role = %q, want %q", claims.Role, model.RoleOrganizer)
	}
	if claims.Subject != "u-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "u-1")
	}
}

func TestParseExpired(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := ti.Issue("u-1", model.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ti.now = time.Now
	if _, err := ti.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("secret-a", time.Hour).Issue("u-1", model.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenIssuer("secret-b", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseGarbage(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	if _, err := ti.Parse("not.a.token"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Secret123!" {
		t.Error("hash should not equal the plain password")
	}
	if !CheckPassword(hash, "Secret123!") {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword(hash, "secret123!") {
		t.Error("CheckPassword should reject a different password")
	}
}
