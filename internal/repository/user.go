package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storelane/api/internal/model"
	"github.com/storelane/api/pkg/cache"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	roleCacheKey = "role:"
	roleCacheTTL = 10 * time.Minute
)

// UserRepository is the credential store: user identity records, their role
// assignments, and the owned refresh-token collection. Username and email
// lookups are case-insensitive. Soft-deleted users are excluded from every
// lookup by GORM's default scope; the only hard delete is HardDelete, used
// as registration compensation.
type UserRepository struct {
	db        *gorm.DB
	roleCache *cache.Cache
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db:        db,
		roleCache: cache.NewCache(),
	}
}

// findRolesByName resolves catalog roles by name. The catalog is seeded at
// startup and effectively immutable, so hits are served from the local TTL
// cache.
func (r *UserRepository) findRolesByName(ctx context.Context, names []string) ([]model.Role, error) {
	roles := make([]model.Role, 0, len(names))
	var missing []string
	for _, name := range names {
		if cached, ok := r.roleCache.Get(roleCacheKey + name); ok {
			roles = append(roles, cached.(model.Role))
		} else {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		var fetched []model.Role
		if err := r.db.WithContext(ctx).Where("name IN ?", missing).Find(&fetched).Error; err != nil {
			return nil, err
		}
		for _, role := range fetched {
			r.roleCache.Set(roleCacheKey+role.Name, role, roleCacheTTL)
		}
		roles = append(roles, fetched...)
	}

	return roles, nil
}

// preloaded returns a query with the user's roles and refresh tokens loaded.
func (r *UserRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Roles").Preload("RefreshTokens")
}

// findOne runs query and maps gorm.ErrRecordNotFound to (nil, nil).
func findOne(result *gorm.DB, user *model.User) (*model.User, error) {
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return user, nil
}

// FindByUsername finds a user by username, case-insensitive. Returns
// (nil, nil) when no such user exists.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindByUsername")

	var user model.User
	result := r.preloaded(ctx).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		First(&user)

	return findOne(result, &user)
}

// FindByEmail finds a user by email, case-insensitive. Returns (nil, nil)
// when no such user exists.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindByEmail")

	var user model.User
	result := r.preloaded(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user)

	return findOne(result, &user)
}

// FindByID finds a user by id. Returns (nil, nil) when no such user exists.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindByID")

	var user model.User
	result := r.preloaded(ctx).Where("id = ?", id).First(&user)

	return findOne(result, &user)
}

// FindByRefreshTokenHash finds the user owning a refresh token with the
// given hash, active or historical. Returns (nil, nil) when no user matches.
func (r *UserRepository) FindByRefreshTokenHash(ctx context.Context, hash string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindByRefreshTokenHash")

	var token model.RefreshToken
	result := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}

	return r.FindByID(ctx, token.UserID)
}

// Create persists a new user with a bcrypt hash of password.
func (r *UserRepository) Create(ctx context.Context, user *model.User, password string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Create")

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("username", user.Username).
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created").
		String("username", user.Username).
		Uint("user_id", user.ID).
		Duration(time.Since(start)).
		Log()

	return nil
}

// CheckPassword verifies password against the stored hash.
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// Save persists user mutations including the refresh-token collection. The
// write runs in a transaction with a row lock on the user so concurrent
// saves for the same user serialize. Because user is an unlocked snapshot,
// the transaction also revokes every active token row the snapshot does not
// carry as its active token: a rotation committed between this caller's load
// and its save would otherwise leave two tokens active, since the upsert
// only touches rows present in the snapshot. After every Save at most one
// refresh token row per user has revoked_on unset.
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Save")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", user.ID).
			First(&locked).Error; err != nil {
			return err
		}

		keepHash := ""
		if active := user.ActiveRefreshToken(); active != nil {
			keepHash = active.TokenHash
		}
		if err := tx.Model(&model.RefreshToken{}).
			Where("user_id = ? AND revoked_on IS NULL AND token_hash <> ?", user.ID, keepHash).
			Update("revoked_on", time.Now().UTC()).Error; err != nil {
			return err
		}

		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(user).Error
	})
}

// HardDelete permanently removes a user and its owned records. Only used as
// the compensating action when role assignment fails mid-registration; all
// other deletes go through GORM's soft delete.
func (r *UserRepository) HardDelete(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "HardDelete")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(user).Error
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to hard delete user").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User hard deleted").
		Uint("user_id", user.ID).
		Log()

	return nil
}

// GetRoles returns the user's current role names.
func (r *UserRepository) GetRoles(ctx context.Context, user *model.User) ([]string, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetRoles")

	var roles []model.Role
	if err := r.db.WithContext(ctx).Model(user).Association("Roles").Find(&roles); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	user.Roles = roles
	return names, nil
}

// AddRoles assigns the named roles to the user. Every name must exist in
// the role catalog; an unknown name fails the whole call without partial
// assignment.
func (r *UserRepository) AddRoles(ctx context.Context, user *model.User, names []string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "AddRoles")

	roles, err := r.findRolesByName(ctx, names)
	if err != nil {
		return err
	}

	if len(roles) != len(names) {
		known := make(map[string]bool, len(roles))
		for _, role := range roles {
			known[role.Name] = true
		}
		for _, name := range names {
			if !known[name] {
				return fmt.Errorf("role %q does not exist", name)
			}
		}
	}

	if err := r.db.WithContext(ctx).Model(user).Association("Roles").Append(&roles); err != nil {
		logger.ErrorWithContext(ctx, "Failed to add roles").
			Uint("user_id", user.ID).
			Strings("roles", names).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Roles assigned").
		Uint("user_id", user.ID).
		Strings("roles", names).
		Log()

	return nil
}

// RemoveRoles detaches the named roles from the user.
func (r *UserRepository) RemoveRoles(ctx context.Context, user *model.User, names []string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "RemoveRoles")

	if len(names) == 0 {
		return nil
	}

	roles, err := r.findRolesByName(ctx, names)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Model(user).Association("Roles").Delete(&roles); err != nil {
		logger.ErrorWithContext(ctx, "Failed to remove roles").
			Uint("user_id", user.ID).
			Strings("roles", names).
			Err(err).
			Log()
		return err
	}

	return nil
}
