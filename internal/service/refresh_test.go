package service

import (
	"context"
	"testing"
	"time"

	"github.com/storelane/api/internal/model"
)

func newTestRefreshManager(t *testing.T, store CredentialStore) *RefreshTokenManager {
	t.Helper()
	tokens, err := NewTokenService(testJWTConfig())
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	return NewRefreshTokenManager(store, tokens)
}

func TestRefreshTokenManager_RotateFirstToken(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)

	user := &model.User{Username: "alice"}
	store.Create(context.Background(), user, "pw")

	token, err := mgr.Rotate(context.Background(), user)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if token.Raw == "" {
		t.Error("Expected rotated token to carry its raw value")
	}
	if len(user.RefreshTokens) != 1 {
		t.Fatalf("Expected one stored token, got %d", len(user.RefreshTokens))
	}
	if !user.RefreshTokens[0].IsActive() {
		t.Error("Expected the new token to be active")
	}
	if store.saveCount != 1 {
		t.Errorf("Expected one persistence call, got %d", store.saveCount)
	}
}

func TestRefreshTokenManager_RotateRevokesPredecessor(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)

	user := &model.User{Username: "alice"}
	store.Create(context.Background(), user, "pw")

	first, err := mgr.Rotate(context.Background(), user)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	firstHash := first.TokenHash

	second, err := mgr.Rotate(context.Background(), user)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if second.TokenHash == firstHash {
		t.Error("Expected a fresh token on rotation")
	}
	if len(user.RefreshTokens) != 2 {
		t.Fatalf("Expected both tokens retained, got %d", len(user.RefreshTokens))
	}
	if user.RefreshTokens[0].RevokedOn == nil {
		t.Error("Expected the predecessor to be revoked")
	}

	active := user.ActiveRefreshToken()
	if active == nil || active.TokenHash != second.TokenHash {
		t.Error("Expected exactly the newest token to be active")
	}
}

func TestRefreshTokenManager_RotateStaleSnapshotLeavesOneActive(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)
	ctx := context.Background()

	user := &model.User{Username: "alice"}
	store.Create(ctx, user, "pw")

	// Two logins load the user before either has rotated, so neither
	// snapshot sees the other's token.
	first, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	second, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}

	stale, err := mgr.Rotate(ctx, first)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	winner, err := mgr.Rotate(ctx, second)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	persisted, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}

	activeCount := 0
	for _, token := range persisted.RefreshTokens {
		if token.IsActive() {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("Expected exactly one active token after overlapping rotations, got %d", activeCount)
	}

	active := persisted.ActiveRefreshToken()
	if active.TokenHash != winner.TokenHash {
		t.Error("Expected the last committed rotation to own the active token")
	}
	if mgr.Validate(stale.Raw, persisted) != nil {
		t.Error("Expected the overwritten rotation's token to fail validation")
	}
	if mgr.Validate(winner.Raw, persisted) == nil {
		t.Error("Expected the surviving token to validate")
	}
}

func TestRefreshTokenManager_RotateSaveFailure(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)

	user := &model.User{Username: "alice"}
	store.Create(context.Background(), user, "pw")
	store.saveErr = errBoom

	if _, err := mgr.Rotate(context.Background(), user); err == nil {
		t.Fatal("Expected rotation to fail when persistence fails")
	}
}

func TestRefreshTokenManager_Validate(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)

	user := &model.User{Username: "alice"}
	store.Create(context.Background(), user, "pw")

	token, err := mgr.Rotate(context.Background(), user)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if mgr.Validate(token.Raw, user) == nil {
		t.Error("Expected the active token's raw value to validate")
	}
	if mgr.Validate("not-the-token", user) != nil {
		t.Error("Expected a wrong raw value to fail validation")
	}

	// Rotating makes the old raw value worthless even though its hash is
	// still stored.
	if _, err := mgr.Rotate(context.Background(), user); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if mgr.Validate(token.Raw, user) != nil {
		t.Error("Expected a rotated-out token to fail validation")
	}
}

func TestRefreshTokenManager_ValidateExpired(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)

	user := &model.User{Username: "alice"}
	store.Create(context.Background(), user, "pw")

	token, err := mgr.Rotate(context.Background(), user)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	user.RefreshTokens[0].ExpiresOn = time.Now().UTC().Add(-time.Minute)
	if mgr.Validate(token.Raw, user) != nil {
		t.Error("Expected an expired token to fail validation")
	}
}

func TestRefreshTokenManager_Revoke(t *testing.T) {
	store := newFakeStore()
	mgr := newTestRefreshManager(t, store)

	user := &model.User{Username: "alice"}
	store.Create(context.Background(), user, "pw")

	token, err := mgr.Rotate(context.Background(), user)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	active := user.ActiveRefreshToken()
	mgr.Revoke(active)

	if active.RevokedOn == nil {
		t.Fatal("Expected a revocation timestamp")
	}
	if mgr.Validate(token.Raw, user) != nil {
		t.Error("Expected a revoked token to fail validation")
	}
}
