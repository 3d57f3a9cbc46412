package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storelane/api/internal/constants"
	"github.com/storelane/api/internal/service"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
)

type AuthMiddleware struct {
	tokens *service.TokenService
}

func NewAuthMiddleware(tokens *service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth validates the bearer token and puts the caller's identity
// into the request context. Every rejection looks the same to the client.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			logger.WarnWithContext(ctx, "Missing Authorization header").
				String("path", c.Request.URL.Path).
				String("method", c.Request.Method).
				Log()
			m.reject(c)
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			logger.WarnWithContext(ctx, "Invalid Authorization header format").
				String("path", c.Request.URL.Path).
				String("method", c.Request.Method).
				Log()
			m.reject(c)
			return
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			logger.WarnWithContext(ctx, "Invalid or expired access token").
				String("path", c.Request.URL.Path).
				String("method", c.Request.Method).
				Err(err).
				Log()
			m.reject(c)
			return
		}

		uidFloat, ok := claims["uid"].(float64)
		if !ok {
			logger.WarnWithContext(ctx, "Access token missing uid claim").
				String("path", c.Request.URL.Path).
				Log()
			m.reject(c)
			return
		}
		userID := uint(uidFloat)

		username, _ := claims["username"].(string)
		roles := claimRoles(claims["roles"])

		c.Set(string(constants.CtxKeyUserID), userID)
		c.Set(string(constants.CtxKeyUsername), username)
		c.Set(string(constants.CtxKeyRoles), roles)

		ctx = ctxutil.WithUserID(ctx, userID)
		ctx = ctxutil.WithUsername(ctx, username)
		ctx = ctxutil.WithRoles(ctx, roles)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OptionalAuth populates the caller's identity when a valid bearer token
// is present but lets anonymous requests through untouched.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.Next()
			return
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		if uidFloat, ok := claims["uid"].(float64); ok {
			userID := uint(uidFloat)
			username, _ := claims["username"].(string)
			roles := claimRoles(claims["roles"])

			c.Set(string(constants.CtxKeyUserID), userID)
			c.Set(string(constants.CtxKeyUsername), username)
			c.Set(string(constants.CtxKeyRoles), roles)

			ctx := ctxutil.WithUserID(c.Request.Context(), userID)
			ctx = ctxutil.WithUsername(ctx, username)
			ctx = ctxutil.WithRoles(ctx, roles)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// RequireRoles allows the request through only when the authenticated
// caller holds at least one of the given roles. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := ctxutil.GetRoles(c.Request.Context())

		for _, have := range roles {
			for _, want := range required {
				if have == want {
					c.Next()
					return
				}
			}
		}

		logger.WarnWithContext(c.Request.Context(), "Insufficient role for endpoint").
			String("path", c.Request.URL.Path).
			Strings("roles", roles).
			Strings("required", required).
			Log()
		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		c.Abort()
	}
}

// CallerRoles returns the authenticated caller's roles, or nil when the
// request is anonymous. Safe to call on routes without RequireAuth.
func CallerRoles(c *gin.Context) []string {
	if val, exists := c.Get(string(constants.CtxKeyRoles)); exists {
		if roles, ok := val.([]string); ok {
			return roles
		}
	}
	return nil
}

func (m *AuthMiddleware) reject(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorizedShort, nil))
	c.Abort()
}

func claimRoles(claim any) []string {
	values, ok := claim.([]any)
	if !ok {
		return nil
	}

	roles := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
