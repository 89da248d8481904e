package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/config"
	"github.com/captive-portal/voucher-server/internal/models"
)

func testManager(ttl time.Duration) *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  ttl,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func testUser() *models.User {
	user := &models.User{
		Email:   "admin@example.com",
		IsAdmin: true,
	}
	user.ID = uuid.New()
	return user
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := testManager(15 * time.Minute)
	user := testUser()

	access, refresh, err := manager.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("empty token returned")
	}

	claims, err := manager.ValidateToken(access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("userID = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if !claims.IsAdmin {
		t.Error("isAdmin not carried through")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	access, _, err := testManager(15 * time.Minute).GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewJWTManager(&config.JWTConfig{Secret: "different-secret"})
	if _, err := other.ValidateToken(access); err == nil {
		t.Error("token signed with another secret was accepted")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	manager := testManager(-time.Minute)

	access, _, err := manager.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := manager.ValidateToken(access); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	if _, err := testManager(time.Minute).ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token was accepted")
	}
}
