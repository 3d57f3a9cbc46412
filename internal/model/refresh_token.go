package model

import "time"

// RefreshToken is an opaque rotation credential owned by its user. Only the
// sha256 digest of the token is stored; the raw value is handed to the caller
// exactly once and never persisted or logged. Revoked tokens are kept as an
// audit trail, never deleted.
type RefreshToken struct {
	ID     uint `gorm:"primarykey"`
	UserID uint `gorm:"column:user_id;index;not null"`

	TokenHash string     `gorm:"column:token_hash;index;not null"`
	Raw       string     `gorm:"-" json:"-"`
	ExpiresOn time.Time  `gorm:"column:expires_on;not null"`
	CreatedOn time.Time  `gorm:"column:created_on;not null"`
	RevokedOn *time.Time `gorm:"column:revoked_on"`
}

// IsExpired reports whether the token's expiry has passed.
func (t *RefreshToken) IsExpired() bool {
	return !time.Now().UTC().Before(t.ExpiresOn)
}

// IsActive reports whether the token is neither expired nor revoked.
func (t *RefreshToken) IsActive() bool {
	return !t.IsExpired() && t.RevokedOn == nil
}
