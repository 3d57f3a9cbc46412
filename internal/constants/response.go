package constants

// Standard Response Field Keys
const (
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
	ResponseFieldData    = "data"
)

// Auth Response Messages (client-visible)
const (
	MsgRegistered        = "Registered Successfully."
	MsgLoggedIn          = "Logged in successfully."
	MsgTokenRefreshed    = "Token refreshed successfully."
	MsgLoggedOut         = "You have been logged out. Please delete your access token and refresh token."
	MsgRolesUpdated      = "Roles updated successfully."
	MsgUsernameExists    = "Username already exists."
	MsgEmailExists       = "Email already exists."
	MsgBadCredentials    = "Username or password is incorrect."
	MsgInvalidToken      = "Invalid token."
	MsgUserHasNoRoles    = "User has no roles, Try logging in again."
	MsgUserNotFound      = "User not found."
	MsgTooManyAttempts   = "Too many failed login attempts. Try again later."
	MsgInvalidRequest    = "Invalid request format"
	MsgUnauthorizedShort = "Unauthorized"
)

// Response Format Functions
func BuildErrorResponse(message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldMessage: message,
	}

	if details != nil {
		response[ResponseFieldDetails] = details
	}

	return response
}

func BuildSuccessResponse(message string) map[string]any {
	return map[string]any{
		ResponseFieldMessage: message,
	}
}

func BuildDataResponse(message string, data any) map[string]any {
	return map[string]any{
		ResponseFieldMessage: message,
		ResponseFieldData:    data,
	}
}
