package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/storelane/api/internal/constants"
	"github.com/storelane/api/internal/dto"
	"github.com/storelane/api/internal/errors"
	"github.com/storelane/api/internal/model"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
)

// AuthService orchestrates registration, login, token refresh, logout, and
// role management. It owns no persistence or crypto of its own: the store
// holds credentials, the token service mints and hashes tokens, and the
// refresh manager enforces the single-active-token lifecycle.
type AuthService struct {
	store    CredentialStore
	tokens   *TokenService
	refresh  *RefreshTokenManager
	throttle *LoginThrottle
	audit    AuditRecorder
}

func NewAuthService(
	store CredentialStore,
	tokens *TokenService,
	refresh *RefreshTokenManager,
	throttle *LoginThrottle,
	audit AuditRecorder,
) *AuthService {
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	return &AuthService{
		store:    store,
		tokens:   tokens,
		refresh:  refresh,
		throttle: throttle,
		audit:    audit,
	}
}

// Register creates a new user with the given role. Username and email must
// both be unused. When role assignment fails after the user row exists, the
// created user is hard-deleted so a retry with the same username can
// succeed. No tokens are issued at registration.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest, role string) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	if existing, err := s.store.FindByUsername(ctx, req.Username); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	} else if existing != nil {
		s.audit.Record(ctx, nil, "register", false, map[string]any{
			"reason":   "username taken",
			"username": req.Username,
		})
		return nil, errors.ErrUsernameExists
	}

	if existing, err := s.store.FindByEmail(ctx, req.Email); err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	} else if existing != nil {
		s.audit.Record(ctx, nil, "register", false, map[string]any{
			"reason": "email taken",
			"email":  req.Email,
		})
		return nil, errors.ErrEmailExists
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
	}

	if err := s.store.Create(ctx, user, req.Password); err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("username", req.Username).
			Err(err).
			Log()
		return nil, errors.WithMessage(errors.ErrCreationFailed,
			fmt.Sprintf("Failed to create user: %v.", err))
	}

	var undo compensator
	undo.Add(func(ctx context.Context) error {
		return s.store.HardDelete(ctx, user)
	})

	if err := s.store.AddRoles(ctx, user, []string{role}); err != nil {
		logger.ErrorWithContext(ctx, "Failed to assign roles to new user").
			Uint("user_id", user.ID).
			String("role", role).
			Err(err).
			Log()

		message := fmt.Sprintf("Failed to assign roles: %v.", err)
		for _, undoErr := range undo.Run(ctx) {
			logger.ErrorWithContext(ctx, "Failed to clean up user after role assignment failure").
				Uint("user_id", user.ID).
				Err(undoErr).
				Log()
			message += fmt.Sprintf("\nFailed to cleanup user: %v.", undoErr)
		}

		s.audit.Record(ctx, nil, "register", false, map[string]any{
			"reason":   "role assignment failed",
			"username": req.Username,
		})
		return nil, errors.WithMessage(errors.ErrRoleAssignmentFailed, message)
	}

	logger.InfoWithContext(ctx, "User registered").
		Uint("user_id", user.ID).
		String("username", user.Username).
		String("role", role).
		Log()
	s.audit.Record(ctx, &user.ID, "register", true, map[string]any{
		"username": user.Username,
		"role":     role,
	})

	return &dto.AuthResponse{
		UserID:          user.ID,
		Username:        user.Username,
		Email:           user.Email,
		IsAuthenticated: false,
		Roles:           []string{role},
	}, nil
}

// Login verifies the credentials and, on success, issues an access token
// and rotates in a fresh refresh token. Unknown identifier and wrong
// password produce the identical error so the response does not reveal
// which factor failed. A user with no roles cannot receive tokens.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")

	if s.throttle != nil && s.throttle.IsBlocked(ctx, req.UsernameOrEmail) {
		s.audit.Record(ctx, nil, "login", false, map[string]any{
			"reason":     "throttled",
			"identifier": req.UsernameOrEmail,
		})
		return nil, errors.ErrTooManyAttempts
	}

	user, err := s.findByIdentifier(ctx, req.UsernameOrEmail)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	if user == nil || !s.store.CheckPassword(user, req.Password) {
		if s.throttle != nil {
			s.throttle.RegisterFailure(ctx, req.UsernameOrEmail)
		}
		logger.WarnWithContext(ctx, "Login failed").
			String("identifier", req.UsernameOrEmail).
			Log()
		s.audit.Record(ctx, nil, "login", false, map[string]any{
			"identifier": req.UsernameOrEmail,
		})
		return nil, errors.ErrInvalidCredentials
	}

	roles := user.RoleNames()
	if len(roles) == 0 {
		logger.ErrorWithContext(ctx, "Authenticated user has no roles").
			Uint("user_id", user.ID).
			Log()
		s.audit.Record(ctx, &user.ID, "login", false, map[string]any{
			"reason": "no roles",
		})
		return nil, errors.ErrNoRolesAssigned
	}

	accessToken, err := s.tokens.CreateAccessToken(user, roles)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	refreshToken, err := s.refresh.Rotate(ctx, user)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	if s.throttle != nil {
		s.throttle.Reset(ctx, req.UsernameOrEmail)
	}

	logger.InfoWithContext(ctx, "User logged in").
		Uint("user_id", user.ID).
		String("username", user.Username).
		Strings("roles", roles).
		Log()
	s.audit.Record(ctx, &user.ID, "login", true, nil)

	return &dto.AuthResponse{
		UserID:                 user.ID,
		Username:               user.Username,
		Email:                  user.Email,
		IsAuthenticated:        true,
		Roles:                  roles,
		AccessToken:            accessToken,
		RefreshToken:           refreshToken.Raw,
		RefreshTokenExpiration: refreshToken.ExpiresOn,
	}, nil
}

// RefreshAccessToken exchanges a presented refresh token for a new access
// token and a new refresh token. The presented token must be the user's
// single active one; any other value, including a previously rotated-out
// token, yields the same invalid-token error.
func (s *AuthService) RefreshAccessToken(ctx context.Context, rawToken string) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RefreshAccessToken")

	user, _, err := s.resolveRefreshToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	roles := user.RoleNames()
	if len(roles) == 0 {
		logger.ErrorWithContext(ctx, "Refresh rejected: user has no roles").
			Uint("user_id", user.ID).
			Log()
		return nil, errors.ErrNoRolesAssigned
	}

	accessToken, err := s.tokens.CreateAccessToken(user, roles)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	refreshToken, err := s.refresh.Rotate(ctx, user)
	if err != nil {
		return nil, errors.WrapError(errors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Access token refreshed").
		Uint("user_id", user.ID).
		Log()
	s.audit.Record(ctx, &user.ID, "refresh", true, nil)

	return &dto.AuthResponse{
		UserID:                 user.ID,
		Username:               user.Username,
		Email:                  user.Email,
		IsAuthenticated:        true,
		Roles:                  roles,
		AccessToken:            accessToken,
		RefreshToken:           refreshToken.Raw,
		RefreshTokenExpiration: refreshToken.ExpiresOn,
	}, nil
}

// RevokeRefreshToken invalidates the presented refresh token without
// issuing a replacement. Revoking an already-revoked token is an error:
// the token no longer identifies an active session.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, rawToken string) (string, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RevokeRefreshToken")

	user, active, err := s.resolveRefreshToken(ctx, rawToken)
	if err != nil {
		return "", err
	}

	s.refresh.Revoke(active)

	if err := s.store.Save(ctx, user); err != nil {
		logger.ErrorWithContext(ctx, "Failed to persist token revocation").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return "", errors.WrapError(errors.ErrRevokeFailed, err)
	}

	logger.InfoWithContext(ctx, "Refresh token revoked").
		Uint("user_id", user.ID).
		Log()
	s.audit.Record(ctx, &user.ID, "logout", true, nil)

	return constants.MsgLoggedOut, nil
}

// UpdateUserRoles replaces the user's role set with the given roles. The
// replacement is remove-all-then-add; a failure partway can leave the user
// with fewer roles than before, which the no-roles login gate surfaces.
func (s *AuthService) UpdateUserRoles(ctx context.Context, userID uint, roles []string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateUserRoles")

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return errors.WrapError(errors.ErrInternal, err)
	}
	if user == nil {
		return errors.ErrUserNotFound
	}

	if err := s.replaceRoles(ctx, user, roles); err != nil {
		logger.ErrorWithContext(ctx, "Failed to update user roles").
			Uint("user_id", user.ID).
			Strings("roles", roles).
			Err(err).
			Log()
		s.audit.Record(ctx, &user.ID, "update_roles", false, map[string]any{
			"roles": strings.Join(roles, ","),
		})
		return errors.WithMessage(errors.ErrRoleUpdateFailed,
			fmt.Sprintf("Failed to update roles: %v.", err))
	}

	logger.InfoWithContext(ctx, "User roles updated").
		Uint("user_id", user.ID).
		Strings("roles", roles).
		Log()
	s.audit.Record(ctx, &user.ID, "update_roles", true, map[string]any{
		"roles": strings.Join(roles, ","),
	})

	return nil
}

// findByIdentifier tries the identifier as a username first, then as an
// email address.
func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	user, err := s.store.FindByUsername(ctx, identifier)
	if err != nil || user != nil {
		return user, err
	}
	return s.store.FindByEmail(ctx, identifier)
}

// resolveRefreshToken maps a raw refresh token to its owner and active
// token record. Every failure mode collapses to the same invalid-token
// error: unknown hash, revoked token, expired token.
func (s *AuthService) resolveRefreshToken(ctx context.Context, rawToken string) (*model.User, *model.RefreshToken, error) {
	hash := s.tokens.HashRefreshToken(rawToken)

	user, err := s.store.FindByRefreshTokenHash(ctx, hash)
	if err != nil {
		return nil, nil, errors.WrapError(errors.ErrInternal, err)
	}
	if user == nil {
		logger.WarnWithContext(ctx, "Unknown refresh token presented").Log()
		s.audit.Record(ctx, nil, "refresh", false, map[string]any{
			"reason": "unknown token",
		})
		return nil, nil, errors.ErrInvalidToken
	}

	active := s.refresh.Validate(rawToken, user)
	if active == nil {
		logger.WarnWithContext(ctx, "Inactive refresh token presented").
			Uint("user_id", user.ID).
			Log()
		s.audit.Record(ctx, &user.ID, "refresh", false, map[string]any{
			"reason": "inactive token",
		})
		return nil, nil, errors.ErrInvalidToken
	}

	return user, active, nil
}

// replaceRoles clears the user's current roles and assigns the given set.
func (s *AuthService) replaceRoles(ctx context.Context, user *model.User, roles []string) error {
	current, err := s.store.GetRoles(ctx, user)
	if err != nil {
		return err
	}

	if len(current) > 0 {
		if err := s.store.RemoveRoles(ctx, user, current); err != nil {
			return err
		}
	}

	return s.store.AddRoles(ctx, user, roles)
}
