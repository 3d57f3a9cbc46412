package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storelane/api/pkg/logger"
)

// OptimizedIndexes creates the indexes AutoMigrate cannot express:
// expression indexes for case-insensitive lookups and partial indexes for
// hot queries. Failures are logged and skipped so startup survives a
// database user without index privileges.
func OptimizedIndexes(db *gorm.DB) error {
	indexes := []string{
		// Case-insensitive username and email lookups
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username)) WHERE deleted_at IS NULL;",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email)) WHERE deleted_at IS NULL;",

		// Refresh-token hash lookup on refresh and logout
		"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token_hash ON refresh_tokens (token_hash);",

		// Active-token scan per user
		"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_active ON refresh_tokens (user_id) WHERE revoked_on IS NULL;",

		// Audit queries are time-ordered per user
		"CREATE INDEX IF NOT EXISTS idx_auth_events_user_created ON auth_events (user_id, created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_auth_events_action ON auth_events (action, created_at DESC);",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.GetLogger().Warn("Failed to create index",
				zap.String("sql", indexSQL),
				zap.Error(err),
			)
		}
	}

	return nil
}
