package repository

import (
	"context"
	"encoding/json"

	"github.com/storelane/api/internal/model"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuthEventRepository persists the audit trail of auth transitions. Writes
// are best-effort: a failed insert is logged and swallowed so auditing can
// never fail the operation it describes.
type AuthEventRepository struct {
	db *gorm.DB
}

func NewAuthEventRepository(db *gorm.DB) *AuthEventRepository {
	return &AuthEventRepository{db: db}
}

// Record writes one audit event. details must not contain raw credentials
// or raw token values; callers only pass identifiers and outcome metadata.
func (r *AuthEventRepository) Record(ctx context.Context, userID *uint, action string, success bool, details map[string]any) {
	ctx = ctxutil.WithOperation(ctx, "repository", "RecordAuthEvent")

	var payload datatypes.JSON
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			logger.WarnWithContext(ctx, "Failed to encode audit details").
				String("action", action).
				Err(err).
				Log()
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	event := model.AuthEvent{
		UserID:  userID,
		Action:  action,
		Success: success,
		Details: payload,
	}

	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		logger.WarnWithContext(ctx, "Failed to record auth event").
			String("action", action).
			Err(err).
			Log()
	}
}
