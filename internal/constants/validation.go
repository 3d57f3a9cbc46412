package constants

// Field Length Limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxEmailLength    = 255
)

// Refresh Token Settings
const (
	RefreshTokenByteLength = 32 // raw entropy before base64 encoding
)
