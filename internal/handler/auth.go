package handler

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storelane/api/internal/constants"
	"github.com/storelane/api/internal/dto"
	apperrors "github.com/storelane/api/internal/errors"
	"github.com/storelane/api/internal/middleware"
	"github.com/storelane/api/internal/service"
	ctxutil "github.com/storelane/api/pkg/context"
	"github.com/storelane/api/pkg/logger"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user registration. Anonymous callers always become
// customers; only an authenticated admin may choose the role, so the
// role field of the request body is ignored for everyone else.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), "handler", "Register")

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid registration request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgInvalidRequest, err.Error()))
		return
	}

	role := constants.DefaultSignupRole
	if req.Role != "" && slices.Contains(middleware.CallerRoles(c), constants.RoleAdmin) {
		role = req.Role
	}

	logger.InfoWithContext(ctx, "Registration attempt").
		String("username", req.Username).
		String("role", role).
		Log()

	response, err := h.authService.Register(ctx, &req, role)
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err),
			constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusCreated, constants.BuildDataResponse(constants.MsgRegistered, response))
}

// Login handles user authentication and session issuance.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid login request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgInvalidRequest, err.Error()))
		return
	}

	logger.InfoWithContext(ctx, "Login attempt").
		String("identifier", req.UsernameOrEmail).
		Log()

	response, err := h.authService.Login(ctx, &req)
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err),
			constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse(constants.MsgLoggedIn, response))
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), "handler", "RefreshToken")

	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid refresh token request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgInvalidRequest, err.Error()))
		return
	}

	response, err := h.authService.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err),
			constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse(constants.MsgTokenRefreshed, response))
}

// Logout revokes the presented refresh token. The access token cannot be
// recalled; the client is told to discard both.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), "handler", "Logout")

	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid logout request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgInvalidRequest, err.Error()))
		return
	}

	message, err := h.authService.RevokeRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		c.JSON(apperrors.ToHTTPStatus(err),
			constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(message))
}

// UpdateRoles replaces a user's role set. Admin only.
func (h *AuthHandler) UpdateRoles(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), "handler", "UpdateRoles")

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgInvalidRequest, "invalid user id"))
		return
	}

	var req dto.UpdateRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid role update request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgInvalidRequest, err.Error()))
		return
	}

	logger.InfoWithContext(ctx, "Role update attempt").
		Uint("target_user_id", uint(userID)).
		Strings("roles", req.Roles).
		Log()

	if err := h.authService.UpdateUserRoles(ctx, uint(userID), req.Roles); err != nil {
		c.JSON(apperrors.ToHTTPStatus(err),
			constants.BuildErrorResponse(apperrors.GetErrorMessage(err), nil))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgRolesUpdated))
}
