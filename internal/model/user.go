package model

import (
	"gorm.io/gorm"
)

// User is the identity record. Deletes are soft by default (gorm.DeletedAt);
// the only hard delete is the registration compensation path in the
// repository's HardDelete.
type User struct {
	gorm.Model
	Username     string `gorm:"column:username;uniqueIndex;not null"`
	Email        string `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`

	Roles         []Role         `gorm:"many2many:user_roles"`
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID"`
}

// RoleNames returns the user's role names in stored order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// ActiveRefreshToken returns the single currently active refresh token, or
// nil if none. At most one token is active at any time; rotation revokes the
// predecessor before issuing a replacement.
func (u *User) ActiveRefreshToken() *RefreshToken {
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].IsActive() {
			return &u.RefreshTokens[i]
		}
	}
	return nil
}

// Role is a catalog entry. Users may only be assigned roles that exist here.
type Role struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"column:name;uniqueIndex;not null"`
}
