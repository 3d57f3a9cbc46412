package constants

// Application Information
const (
	AppName    = "Commerce API"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "8080"
	DefaultEnvironment = EnvDevelopment
)

// Role Names (must match the seeded role catalog)
const (
	RoleAdmin    = "Admin"
	RoleSeller   = "Seller"
	RoleCustomer = "Customer"
)

// DefaultSignupRole is assigned when an unauthenticated caller registers.
const DefaultSignupRole = RoleCustomer

// Cache Key Prefixes
const (
	CacheKeyPrefix        = "commerce:"
	CacheKeyLoginAttempts = CacheKeyPrefix + "login_attempts:"
)

// Log Levels
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)
