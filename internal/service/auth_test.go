package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/storelane/api/internal/constants"
	"github.com/storelane/api/internal/dto"
	apperrors "github.com/storelane/api/internal/errors"
	"github.com/storelane/api/internal/model"
)

func newTestAuthService(t *testing.T, store *fakeStore) (*AuthService, *fakeAudit) {
	t.Helper()

	tokens, err := NewTokenService(testJWTConfig())
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}

	cache := newFakeRedis()
	cache.enabled = false

	audit := &fakeAudit{}
	svc := NewAuthService(
		store,
		tokens,
		NewRefreshTokenManager(store, tokens),
		NewLoginThrottle(cache, 3, time.Minute),
		audit,
	)
	return svc, audit
}

func registerUser(t *testing.T, svc *AuthService, username, email, password, role string) *dto.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	}, role)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return resp
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	domainErr := apperrors.GetDomainError(err)
	if domainErr == nil {
		t.Fatalf("Expected a domain error, got %v", err)
	}
	return domainErr.Code
}

func TestAuthService_Register(t *testing.T) {
	store := newFakeStore()
	svc, audit := newTestAuthService(t, store)

	resp := registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	if resp.IsAuthenticated {
		t.Error("Expected no session from registration")
	}
	if resp.AccessToken != "" || resp.RefreshToken != "" {
		t.Error("Expected no tokens from registration")
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != "Customer" {
		t.Errorf("Expected roles [Customer], got %v", resp.Roles)
	}

	stored, _ := store.FindByUsername(context.Background(), "alice")
	if stored == nil {
		t.Fatal("Expected the user to be persisted")
	}
	if len(stored.Roles) != 1 || stored.Roles[0].Name != "Customer" {
		t.Errorf("Expected the stored user to carry the role, got %v", stored.Roles)
	}

	last := audit.events[len(audit.events)-1]
	if last.action != "register" || !last.success {
		t.Errorf("Expected a successful register audit event, got %+v", last)
	}
}

func TestAuthService_RegisterDuplicateUsername(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "ALICE",
		Email:    "other@example.com",
		Password: "Secret@123",
	}, "Customer")
	if err == nil {
		t.Fatal("Expected duplicate username to be rejected")
	}
	if code := domainCode(t, err); code != "USERNAME_EXISTS" {
		t.Errorf("Expected USERNAME_EXISTS, got %s", code)
	}
	if apperrors.GetErrorMessage(err) != constants.MsgUsernameExists {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(err))
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "bob",
		Email:    "Alice@Example.com",
		Password: "Secret@123",
	}, "Customer")
	if err == nil {
		t.Fatal("Expected duplicate email to be rejected")
	}
	if code := domainCode(t, err); code != "EMAIL_EXISTS" {
		t.Errorf("Expected EMAIL_EXISTS, got %s", code)
	}
}

func TestAuthService_RegisterRoleFailureDeletesUser(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Secret@123",
	}, "Superuser")
	if err == nil {
		t.Fatal("Expected registration with unknown role to fail")
	}
	if code := domainCode(t, err); code != "ROLE_ASSIGNMENT_FAILED" {
		t.Errorf("Expected ROLE_ASSIGNMENT_FAILED, got %s", code)
	}
	if !strings.Contains(apperrors.GetErrorMessage(err), "Failed to assign roles:") {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(err))
	}

	// Compensation must free the username for a retry.
	if len(store.hardDeleted) != 1 {
		t.Fatalf("Expected one hard delete, got %d", len(store.hardDeleted))
	}
	if u, _ := store.FindByUsername(context.Background(), "alice"); u != nil {
		t.Error("Expected the half-created user to be gone")
	}

	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")
}

func TestAuthService_RegisterCleanupFailureIsReported(t *testing.T) {
	store := newFakeStore()
	store.hardDeleteErr = errBoom
	svc, _ := newTestAuthService(t, store)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Secret@123",
	}, "Superuser")
	if err == nil {
		t.Fatal("Expected registration to fail")
	}

	message := apperrors.GetErrorMessage(err)
	if !strings.Contains(message, "Failed to assign roles:") {
		t.Errorf("Expected the role failure in %q", message)
	}
	if !strings.Contains(message, "Failed to cleanup user:") {
		t.Errorf("Expected the cleanup failure in %q", message)
	}
}

func TestAuthService_Login(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "Secret@123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !resp.IsAuthenticated {
		t.Error("Expected an authenticated response")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("Expected both tokens to be issued")
	}
	if resp.RefreshTokenExpiration.Before(time.Now()) {
		t.Error("Expected a future refresh-token expiration")
	}

	user, _ := store.FindByUsername(context.Background(), "alice")
	active := user.ActiveRefreshToken()
	if active == nil {
		t.Fatal("Expected an active refresh token after login")
	}
}

func TestAuthService_LoginByEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice@example.com",
		Password:        "Secret@123",
	}); err != nil {
		t.Fatalf("Login by email failed: %v", err)
	}
}

func TestAuthService_LoginRotatesRefreshToken(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	first, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "Secret@123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "Secret@123",
	}); err != nil {
		t.Fatalf("Second login failed: %v", err)
	}

	// The first session's refresh token must no longer refresh.
	if _, err := svc.RefreshAccessToken(context.Background(), first.RefreshToken); err == nil {
		t.Error("Expected the rotated-out token to be rejected")
	}
}

func TestAuthService_LoginBadCredentialsIndistinguishable(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	_, wrongPassword := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "wrong",
	})
	_, unknownUser := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "nobody",
		Password:        "Secret@123",
	})

	if wrongPassword == nil || unknownUser == nil {
		t.Fatal("Expected both logins to fail")
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("Expected identical errors, got %q and %q", wrongPassword, unknownUser)
	}
	if apperrors.GetErrorMessage(wrongPassword) != constants.MsgBadCredentials {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(wrongPassword))
	}
}

func TestAuthService_LoginNoRoles(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	user := &model.User{Username: "ghost", Email: "ghost@example.com"}
	store.Create(context.Background(), user, "Secret@123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "ghost",
		Password:        "Secret@123",
	})
	if err == nil {
		t.Fatal("Expected login to fail for a user without roles")
	}
	if code := domainCode(t, err); code != "NO_ROLES_ASSIGNED" {
		t.Errorf("Expected NO_ROLES_ASSIGNED, got %s", code)
	}
	if apperrors.GetErrorMessage(err) != constants.MsgUserHasNoRoles {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(err))
	}
}

func TestAuthService_LoginThrottled(t *testing.T) {
	store := newFakeStore()
	tokens, _ := NewTokenService(testJWTConfig())
	cache := newFakeRedis()
	svc := NewAuthService(
		store,
		tokens,
		NewRefreshTokenManager(store, tokens),
		NewLoginThrottle(cache, 2, time.Minute),
		nil,
	)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	bad := &dto.LoginRequest{UsernameOrEmail: "alice", Password: "wrong"}
	svc.Login(context.Background(), bad)
	svc.Login(context.Background(), bad)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "Secret@123",
	})
	if err == nil {
		t.Fatal("Expected the throttle to block the third attempt")
	}
	if code := domainCode(t, err); code != "TOO_MANY_ATTEMPTS" {
		t.Errorf("Expected TOO_MANY_ATTEMPTS, got %s", code)
	}
}

func TestAuthService_LoginSuccessResetsThrottle(t *testing.T) {
	store := newFakeStore()
	tokens, _ := NewTokenService(testJWTConfig())
	cache := newFakeRedis()
	svc := NewAuthService(
		store,
		tokens,
		NewRefreshTokenManager(store, tokens),
		NewLoginThrottle(cache, 2, time.Minute),
		nil,
	)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	svc.Login(context.Background(), &dto.LoginRequest{UsernameOrEmail: "alice", Password: "wrong"})

	good := &dto.LoginRequest{UsernameOrEmail: "alice", Password: "Secret@123"}
	if _, err := svc.Login(context.Background(), good); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if len(cache.counts) != 0 {
		t.Error("Expected the failure counter to be cleared after a successful login")
	}
}

func TestAuthService_RefreshAccessToken(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "Secret@123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := svc.RefreshAccessToken(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken failed: %v", err)
	}

	if refreshed.AccessToken == "" {
		t.Error("Expected a new access token")
	}
	if refreshed.RefreshToken == "" || refreshed.RefreshToken == login.RefreshToken {
		t.Error("Expected a new refresh token")
	}

	// Using the consumed token again must fail.
	if _, err := svc.RefreshAccessToken(context.Background(), login.RefreshToken); err == nil {
		t.Fatal("Expected the consumed token to be rejected")
	} else if code := domainCode(t, err); code != "INVALID_TOKEN" {
		t.Errorf("Expected INVALID_TOKEN, got %s", code)
	}

	// The replacement still works.
	if _, err := svc.RefreshAccessToken(context.Background(), refreshed.RefreshToken); err != nil {
		t.Errorf("Expected the replacement token to refresh: %v", err)
	}
}

func TestAuthService_RefreshUnknownToken(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	_, err := svc.RefreshAccessToken(context.Background(), "never-issued")
	if err == nil {
		t.Fatal("Expected an unknown token to be rejected")
	}
	if apperrors.GetErrorMessage(err) != constants.MsgInvalidToken {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(err))
	}
}

func TestAuthService_RevokeRefreshToken(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "Secret@123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	message, err := svc.RevokeRefreshToken(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("RevokeRefreshToken failed: %v", err)
	}
	if message != constants.MsgLoggedOut {
		t.Errorf("Unexpected message %q", message)
	}

	// Second revocation of the same token fails: no active session remains.
	if _, err := svc.RevokeRefreshToken(context.Background(), login.RefreshToken); err == nil {
		t.Fatal("Expected double revocation to fail")
	} else if code := domainCode(t, err); code != "INVALID_TOKEN" {
		t.Errorf("Expected INVALID_TOKEN, got %s", code)
	}

	// And the revoked token can no longer refresh.
	if _, err := svc.RefreshAccessToken(context.Background(), login.RefreshToken); err == nil {
		t.Error("Expected the revoked token to be rejected by refresh")
	}
}

func TestAuthService_UpdateUserRoles(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	resp := registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	if err := svc.UpdateUserRoles(context.Background(), resp.UserID, []string{"Admin", "Seller"}); err != nil {
		t.Fatalf("UpdateUserRoles failed: %v", err)
	}

	user, _ := store.FindByID(context.Background(), resp.UserID)
	names := user.RoleNames()
	if len(names) != 2 || names[0] != "Admin" || names[1] != "Seller" {
		t.Errorf("Expected roles replaced with [Admin Seller], got %v", names)
	}
}

func TestAuthService_UpdateUserRolesUnknownUser(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	err := svc.UpdateUserRoles(context.Background(), 999, []string{"Admin"})
	if err == nil {
		t.Fatal("Expected unknown user to be rejected")
	}
	if code := domainCode(t, err); code != "USER_NOT_FOUND" {
		t.Errorf("Expected USER_NOT_FOUND, got %s", code)
	}
	if apperrors.GetErrorMessage(err) != constants.MsgUserNotFound {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(err))
	}
}

func TestAuthService_UpdateUserRolesUnknownRole(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	resp := registerUser(t, svc, "alice", "alice@example.com", "Secret@123", "Customer")

	err := svc.UpdateUserRoles(context.Background(), resp.UserID, []string{"Superuser"})
	if err == nil {
		t.Fatal("Expected unknown role to be rejected")
	}
	if code := domainCode(t, err); code != "ROLE_UPDATE_FAILED" {
		t.Errorf("Expected ROLE_UPDATE_FAILED, got %s", code)
	}
	if !strings.Contains(apperrors.GetErrorMessage(err), "Failed to update roles:") {
		t.Errorf("Unexpected message %q", apperrors.GetErrorMessage(err))
	}
}
