// ===============================
// FILE: internal/handlers/api/v1/auth/auth_controller.go
// ===============================

package auth

import (
	"encoding/json"
	"net/http"

	"platewise/internal/contextutils"
	"platewise/internal/response"
	"platewise/internal/services"

	"go.uber.org/zap"
)

// AuthController handles authentication API endpoints
type AuthController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
	responseBuilder   *response.Builder
}

// NewAuthController creates a new auth controller
func NewAuthController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AuthController {
	return &AuthController{
		serviceCollection: serviceCollection,
		logger:            logger,
		responseBuilder:   responseBuilder,
	}
}

// Register handles POST /api/v1/auth/register
//
//	@Summary	Register a new account
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body	services.RegisterRequest	true	"Registration payload"
//	@Success	201		{object}	response.APIResponse
//	@Router		/api/v1/auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode register request", zap.Error(err))
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}

	authResp, err := c.serviceCollection.AuthService.Register(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("User registered via API",
		zap.Int64("user_id", authResp.User.ID),
		zap.String("username", authResp.User.Username),
	)
	c.responseBuilder.WriteCreated(w, r, authResp)
}

// Login handles POST /api/v1/auth/login
//
//	@Summary	Authenticate and issue a token
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body	services.LoginRequest	true	"Login payload"
//	@Success	200		{object}	response.APIResponse
//	@Router		/api/v1/auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode login request", zap.Error(err))
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}
	req.IPAddress = r.RemoteAddr

	authResp, err := c.serviceCollection.AuthService.Login(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, authResp)
}

// Me handles GET /api/v1/auth/me
//
//	@Summary	Return the authenticated profile
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/auth/me [get]
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	user, err := c.serviceCollection.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, user)
}

// UpdateProfile handles PATCH /api/v1/auth/me
//
//	@Summary	Update the authenticated profile
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/auth/me [patch]
func (c *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}
	req.UserID = contextutils.GetUserID(r.Context())

	user, err := c.serviceCollection.UserService.UpdateProfile(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, user)
}
