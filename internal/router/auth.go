package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		// Register is public; an admin bearer token additionally allows
		// choosing the new user's role.
		auth.POST("/register", r.authMw.OptionalAuth(), r.authHandler.Register)

		// Public routes (no authentication required)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/refresh", r.authHandler.RefreshToken)

		// Protected routes (JWT authentication required)
		protected := auth.Group("")
		protected.Use(r.authMw.RequireAuth())
		{
			protected.POST("/logout", r.authHandler.Logout)
		}
	}
}
