// ===============================
// FILE: internal/handlers/api/v1/recipes/recipes_controller.go
// ===============================

package recipes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"platewise/internal/contextutils"
	"platewise/internal/response"
	"platewise/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxImageUploadBytes = 10 << 20 // 10 MB

// RecipeController handles recipe and cooking session API endpoints
type RecipeController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
	responseBuilder   *response.Builder
}

// NewRecipeController creates a new recipe controller
func NewRecipeController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *RecipeController {
	return &RecipeController{
		serviceCollection: serviceCollection,
		logger:            logger,
		responseBuilder:   responseBuilder,
	}
}

// ===============================
// RECIPE CRUD
// ===============================

// CreateRecipe handles POST /api/v1/recipes
//
//	@Summary	Publish a new recipe
//	@Tags		recipes
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	201	{object}	response.APIResponse
//	@Router		/api/v1/recipes [post]
func (c *RecipeController) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}
	req.UserID = contextutils.GetUserID(r.Context())

	recipe, err := c.serviceCollection.RecipeService.CreateRecipe(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Recipe created",
		zap.Int64("recipe_id", recipe.ID),
		zap.Int64("user_id", req.UserID),
	)
	c.responseBuilder.WriteCreated(w, r, recipe)
}

// GetRecipe handles GET /api/v1/recipes/{id}
//
//	@Summary	Get one recipe
//	@Tags		recipes
//	@Produce	json
//	@Param		id	path	int	true	"Recipe ID"
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/recipes/{id} [get]
func (c *RecipeController) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var viewerID *int64
	if userID := contextutils.GetUserID(r.Context()); userID > 0 {
		viewerID = &userID
	}

	recipe, err := c.serviceCollection.RecipeService.GetRecipeByID(r.Context(), id, viewerID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, recipe)
}

// UpdateRecipe handles PATCH /api/v1/recipes/{id}
//
//	@Summary	Edit an owned recipe
//	@Tags		recipes
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	int	true	"Recipe ID"
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/recipes/{id} [patch]
func (c *RecipeController) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.UpdateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}
	req.RecipeID = id
	req.UserID = contextutils.GetUserID(r.Context())

	recipe, err := c.serviceCollection.RecipeService.UpdateRecipe(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, recipe)
}

// DeleteRecipe handles DELETE /api/v1/recipes/{id}
//
//	@Summary	Delete an owned recipe
//	@Tags		recipes
//	@Security	BearerAuth
//	@Param		id	path	int	true	"Recipe ID"
//	@Success	204
//	@Router		/api/v1/recipes/{id} [delete]
func (c *RecipeController) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	userID := contextutils.GetUserID(r.Context())
	if err := c.serviceCollection.RecipeService.DeleteRecipe(r.Context(), id, userID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Recipe deleted",
		zap.Int64("recipe_id", id),
		zap.Int64("user_id", userID),
	)
	c.responseBuilder.WriteNoContent(w, r)
}

// ListRecipes handles GET /api/v1/recipes
//
//	@Summary	List published recipes
//	@Tags		recipes
//	@Produce	json
//	@Param		limit	query	int		false	"Page size"
//	@Param		offset	query	int		false	"Page offset"
//	@Param		sort	query	string	false	"Sort field"	Enums(created_at, cost_per_serving, time_minutes)
//	@Success	200		{object}	response.APIResponse
//	@Router		/api/v1/recipes [get]
func (c *RecipeController) ListRecipes(w http.ResponseWriter, r *http.Request) {
	pagination, err := response.ParsePagination(r, &response.PaginationConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
		AllowedSorts: []string{"created_at", "cost_per_serving", "time_minutes"},
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	page, err := c.serviceCollection.RecipeService.ListRecipes(r.Context(),
		&services.ListRecipesRequest{Pagination: pagination})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, page)
}

// ListMyRecipes handles GET /api/v1/recipes/mine
//
//	@Summary	List the authenticated user's recipes
//	@Tags		recipes
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/recipes/mine [get]
func (c *RecipeController) ListMyRecipes(w http.ResponseWriter, r *http.Request) {
	pagination, err := response.ParsePagination(r, &response.PaginationConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
		AllowedSorts: []string{"created_at"},
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	page, err := c.serviceCollection.RecipeService.GetRecipesByUser(r.Context(),
		contextutils.GetUserID(r.Context()), pagination)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, page)
}

// ===============================
// IMAGES
// ===============================

// UploadImage handles POST /api/v1/recipes/{id}/image
//
//	@Summary	Attach an image to an owned recipe
//	@Tags		recipes
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int		true	"Recipe ID"
//	@Param		image	formData	file	true	"Recipe image"
//	@Success	200		{object}	response.APIResponse
//	@Router		/api/v1/recipes/{id}/image [post]
func (c *RecipeController) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid multipart form", nil))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("image file is required", nil))
		return
	}
	defer file.Close()

	result, err := c.serviceCollection.RecipeService.UploadRecipeImage(r.Context(),
		&services.UploadRecipeImageRequest{
			RecipeID: id,
			UserID:   contextutils.GetUserID(r.Context()),
			Filename: header.Filename,
			Size:     header.Size,
			Reader:   file,
		})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Recipe image uploaded",
		zap.Int64("recipe_id", id),
		zap.String("public_id", result.PublicID),
	)
	c.responseBuilder.WriteSuccess(w, r, result)
}

// ===============================
// COOKING SESSIONS
// ===============================

// StartSession handles POST /api/v1/sessions
//
//	@Summary	Start cooking a recipe
//	@Tags		sessions
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	201	{object}	response.APIResponse
//	@Router		/api/v1/sessions [post]
func (c *RecipeController) StartSession(w http.ResponseWriter, r *http.Request) {
	var req services.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}
	req.UserID = contextutils.GetUserID(r.Context())

	session, err := c.serviceCollection.RecipeService.StartSession(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteCreated(w, r, session)
}

// CompleteSession handles POST /api/v1/sessions/{id}/complete
//
//	@Summary	Complete a cooking session
//	@Tags		sessions
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	int	true	"Session ID"
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/sessions/{id}/complete [post]
func (c *RecipeController) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	session, err := c.serviceCollection.RecipeService.CompleteSession(r.Context(),
		&services.CompleteSessionRequest{
			UserID:    contextutils.GetUserID(r.Context()),
			SessionID: id,
		})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Cooking session completed",
		zap.Int64("session_id", id),
		zap.Int64("user_id", contextutils.GetUserID(r.Context())),
	)
	c.responseBuilder.WriteSuccess(w, r, session)
}

// ListSessions handles GET /api/v1/sessions
//
//	@Summary	List the authenticated user's cooking sessions
//	@Tags		sessions
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/sessions [get]
func (c *RecipeController) ListSessions(w http.ResponseWriter, r *http.Request) {
	pagination, err := response.ParsePagination(r, &response.PaginationConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
		AllowedSorts: []string{"started_at", "completed_at"},
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	page, err := c.serviceCollection.RecipeService.GetSessionsByUser(r.Context(),
		contextutils.GetUserID(r.Context()), pagination)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, page)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError("invalid "+name, nil)
	}
	return id, nil
}
