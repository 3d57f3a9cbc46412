package service

import (
	"context"

	"github.com/storelane/api/internal/model"
)

// CredentialStore is the persistence collaborator for the auth core. Find
// methods return (nil, nil) when no record matches; an error means the
// lookup itself failed. Save must guarantee that after it returns, at most
// one of the user's refresh tokens is unrevoked, even when the saved value
// is a stale snapshot that missed a concurrent rotation. Implemented by
// repository.UserRepository.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByRefreshTokenHash(ctx context.Context, hash string) (*model.User, error)

	Create(ctx context.Context, user *model.User, password string) error
	Save(ctx context.Context, user *model.User) error
	HardDelete(ctx context.Context, user *model.User) error

	CheckPassword(user *model.User, password string) bool

	GetRoles(ctx context.Context, user *model.User) ([]string, error)
	AddRoles(ctx context.Context, user *model.User, roles []string) error
	RemoveRoles(ctx context.Context, user *model.User, roles []string) error
}

// AuditRecorder records significant auth transitions. Implementations must
// be best-effort: recording never fails the operation being audited.
// Implemented by repository.AuthEventRepository.
type AuditRecorder interface {
	Record(ctx context.Context, userID *uint, action string, success bool, details map[string]any)
}

// NopAuditRecorder discards audit events. Used when no audit store is wired.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(ctx context.Context, userID *uint, action string, success bool, details map[string]any) {
}
