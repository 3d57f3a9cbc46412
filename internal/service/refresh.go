package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/storelane/api/internal/model"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
)

// RefreshTokenManager enforces the refresh-token lifecycle: at most one
// active token per user, rotation on every use, and revocation by timestamp
// only. Tokens are never removed from the user's collection.
type RefreshTokenManager struct {
	store  CredentialStore
	tokens *TokenService
}

func NewRefreshTokenManager(store CredentialStore, tokens *TokenService) *RefreshTokenManager {
	return &RefreshTokenManager{
		store:  store,
		tokens: tokens,
	}
}

// Rotate revokes the user's currently active refresh token (if any),
// appends a freshly generated one, and persists the user. Concurrent
// rotations for the same user are resolved by the store: Save revokes any
// active row this snapshot never saw, so only the last committed rotation's
// token stays active. The returned token carries the raw value for the
// caller; only its hash was stored.
func (m *RefreshTokenManager) Rotate(ctx context.Context, user *model.User) (*model.RefreshToken, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RotateRefreshToken")

	if active := user.ActiveRefreshToken(); active != nil {
		now := time.Now().UTC()
		active.RevokedOn = &now
		logger.DebugWithContext(ctx, "Revoking active refresh token before rotation").
			Uint("user_id", user.ID).
			Log()
	}

	token, err := m.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	user.RefreshTokens = append(user.RefreshTokens, *token)

	if err := m.store.Save(ctx, user); err != nil {
		logger.ErrorWithContext(ctx, "Failed to persist rotated refresh token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return nil, err
	}

	logger.InfoWithContext(ctx, "Refresh token rotated").
		Uint("user_id", user.ID).
		Log()

	// Return the stored element so the caller sees any persistence-assigned
	// fields; the raw value survives because it is never written to the DB.
	return &user.RefreshTokens[len(user.RefreshTokens)-1], nil
}

// Validate checks a presented raw token against the user's single currently
// active token. Revoked or expired tokens never validate, even when their
// stored hash matches; this is what makes an already-used token worthless.
func (m *RefreshTokenManager) Validate(raw string, user *model.User) *model.RefreshToken {
	active := user.ActiveRefreshToken()
	if active == nil {
		return nil
	}

	hashed := m.tokens.HashRefreshToken(raw)
	if subtle.ConstantTimeCompare([]byte(hashed), []byte(active.TokenHash)) != 1 {
		return nil
	}

	return active
}

// Revoke marks the token revoked as of now. The record stays in the user's
// collection; the caller is responsible for persisting the user.
func (m *RefreshTokenManager) Revoke(token *model.RefreshToken) {
	now := time.Now().UTC()
	token.RevokedOn = &now
}
