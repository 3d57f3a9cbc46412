package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuthEvent is a persisted audit record of a significant auth transition
// (register, login, refresh, revoke, role update). Writes are best-effort
// and never block the operation they describe.
type AuthEvent struct {
	ID        uint           `gorm:"primarykey"`
	UserID    *uint          `gorm:"column:user_id;index"`
	Action    string         `gorm:"column:action;not null"`
	Success   bool           `gorm:"column:success;not null"`
	Details   datatypes.JSON `gorm:"column:details"`
	CreatedAt time.Time
}
