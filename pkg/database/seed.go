package database

import (
	"github.com/storelane/api/internal/constants"
	"github.com/storelane/api/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultAdmin defines the default admin user credentials
type DefaultAdmin struct {
	Username string
	Email    string
	Password string
}

// GetDefaultAdmin returns the default admin user
func GetDefaultAdmin() DefaultAdmin {
	return DefaultAdmin{
		Username: "admin",
		Email:    "admin@storelane.local",
		Password: "Admin@123", // Change this in production!
	}
}

// Seed creates initial data for the database
func Seed(db *gorm.DB) error {
	if err := SeedRoles(db); err != nil {
		return err
	}
	return SeedAdminUser(db)
}

// SeedRoles inserts the role catalog. Role assignment only succeeds for
// names present here.
func SeedRoles(db *gorm.DB) error {
	for _, name := range []string{constants.RoleAdmin, constants.RoleSeller, constants.RoleCustomer} {
		var existing model.Role
		result := db.Where("name = ?", name).First(&existing)
		if result.Error == nil {
			continue
		}
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}
		if err := db.Create(&model.Role{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdminUser creates the default admin user if not exists
func SeedAdminUser(db *gorm.DB) error {
	admin := GetDefaultAdmin()

	var existingUser model.User
	result := db.Where("username = ?", admin.Username).First(&existingUser)

	if result.Error == nil {
		// User already exists, skip seeding
		return nil
	}

	if result.Error != gorm.ErrRecordNotFound {
		return result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var adminRole model.Role
	if err := db.Where("name = ?", constants.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	user := model.User{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: string(hashedPassword),
		Roles:        []model.Role{adminRole},
	}

	return db.Create(&user).Error
}
