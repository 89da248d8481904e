package session

import (
	"context"
	"errors"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
	"github.com/captive-portal/voucher-server/pkg/crypto"
)

// tokenBytes gives 128 bits of entropy per token.
const tokenBytes = 16

// ErrInvalidToken is returned when a token resolves to no active session.
var ErrInvalidToken = errors.New("invalid token")

// TokenService mints and validates opaque per-voucher session tokens.
// A voucher holds at most one token at a time; the token is written by
// the store's atomic redemption, not by this service.
type TokenService struct {
	store storage.Store
}

// NewTokenService creates a token service backed by the given store
func NewTokenService(store storage.Store) *TokenService {
	return &TokenService{store: store}
}

// Generate mints a new opaque token without touching the store. Used
// by callers that persist the token as part of a larger atomic update.
func (s *TokenService) Generate() (string, error) {
	return crypto.GenerateRandomString(tokenBytes)
}

// Validate resolves a token to its voucher. Tokens on expired or
// archived vouchers are cleared at transition time, so a hit here is
// always a live session.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.Voucher, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	voucher, err := s.store.GetVoucherByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return voucher, nil
}
