package dto

import "time"

type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=50"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,password"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Role            string `json:"role" binding:"omitempty,oneof=Admin Seller Customer"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,required"`
}

// AuthResponse is the identity payload returned by register, login, and
// refresh. Tokens are empty for register: no session is issued at
// registration time.
type AuthResponse struct {
	UserID                 uint      `json:"user_id"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	IsAuthenticated        bool      `json:"is_authenticated"`
	Roles                  []string  `json:"roles"`
	AccessToken            string    `json:"access_token,omitempty"`
	RefreshToken           string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiration time.Time `json:"refresh_token_expiration,omitzero"`
}
