package utils

import (
	"testing"

	"github.com/terralima/portalgo/internal/models"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := "test-secret-key-12345"
	user := models.SessionUser{
		PartnerID: 42,
		Name:      "Juan Perez",
		Email:     "juan@example.com",
		DNI:       "12345678",
	}

	// Test Generation
	token, err := GenerateSessionToken(user, secret)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("Token should not be empty")
	}

	// Test Validation (Success)
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	restored := SessionFromClaims(claims)
	if restored.PartnerID != user.PartnerID {
		t.Errorf("Expected partner id %d, got %d", user.PartnerID, restored.PartnerID)
	}
	if restored.Name != user.Name {
		t.Errorf("Expected name %s, got %s", user.Name, restored.Name)
	}
	if restored.DNI != user.DNI {
		t.Errorf("Expected dni %s, got %s", user.DNI, restored.DNI)
	}
	if restored.Email != user.Email {
		t.Errorf("Expected email %s, got %s", user.Email, restored.Email)
	}

	// Test Validation (Failure - Wrong Key)
	if _, err = ValidateToken(token, "wrong-key"); err == nil {
		t.Error("Validation should fail with wrong key")
	}

	// Test Validation (Failure - Garbage)
	if _, err = ValidateToken("not.a.token", secret); err == nil {
		t.Error("Validation should fail for malformed tokens")
	}
}

func TestSalespersonTokenCarriesUID(t *testing.T) {
	secret := "test-secret-key-12345"
	user := models.SessionUser{UID: 7, PartnerID: 3, Name: "Vendedor"}

	token, err := GenerateSessionToken(user, secret)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	restored := SessionFromClaims(claims)
	if restored.UID != 7 {
		t.Errorf("Expected uid 7, got %d", restored.UID)
	}
	if restored.DNI != "" {
		t.Errorf("Customer-only claims should be absent, got dni %q", restored.DNI)
	}
}
