package router

import (
	"github.com/gin-gonic/gin"

	"github.com/storelane/api/internal/constants"
)

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	users.Use(r.authMw.RequireAuth())
	{
		admin := users.Group("")
		admin.Use(r.authMw.RequireRoles(constants.RoleAdmin))
		{
			admin.PUT("/:id/roles", r.authHandler.UpdateRoles)
		}
	}
}
