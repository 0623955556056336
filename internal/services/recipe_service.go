// file: internal/services/recipe_service.go
package services

import (
	"context"

	"platewise/internal/events"
	"platewise/internal/models"
	"platewise/internal/repositories"
	"platewise/internal/utils"
	"platewise/internal/validation"

	"go.uber.org/zap"
)

// recipeService implements RecipeService
type recipeService struct {
	recipeRepo  repositories.RecipeRepository
	sessionRepo repositories.SessionRepository
	images      utils.ImageStorage
	events      events.EventBus
	logger      *zap.Logger
}

// NewRecipeService creates a new recipe service. The image storage may be
// nil when file uploads are disabled.
func NewRecipeService(
	recipeRepo repositories.RecipeRepository,
	sessionRepo repositories.SessionRepository,
	images utils.ImageStorage,
	eventBus events.EventBus,
	logger *zap.Logger,
) RecipeService {
	return &recipeService{
		recipeRepo:  recipeRepo,
		sessionRepo: sessionRepo,
		images:      images,
		events:      eventBus,
		logger:      logger,
	}
}

// ===============================
// RECIPE CRUD
// ===============================

// CreateRecipe publishes a new recipe
func (s *recipeService) CreateRecipe(ctx context.Context, req *CreateRecipeRequest) (*models.Recipe, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid create recipe request", err)
	}

	recipe := &models.Recipe{
		UserID:         req.UserID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Status:         "published",
		Servings:       req.Servings,
		CostPerServing: req.CostPerServing,
		TimeMinutes:    req.TimeMinutes,
		Tags:           req.Tags,
	}

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		s.logger.Error("Failed to create recipe", zap.Error(err), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to create recipe")
	}

	s.publish(ctx, events.NewRecipeCreatedEvent(recipe.ID, recipe.UserID, recipe.Title))

	s.logger.Info("Recipe created",
		zap.Int64("recipe_id", recipe.ID),
		zap.Int64("user_id", recipe.UserID),
		zap.String("title", recipe.Title),
	)
	return recipe, nil
}

// GetRecipeByID retrieves a recipe
func (s *recipeService) GetRecipeByID(ctx context.Context, id int64, userID *int64) (*models.Recipe, error) {
	if id <= 0 {
		return nil, NewValidationError("invalid recipe ID", nil)
	}

	recipe, err := s.recipeRepo.GetByID(ctx, id, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("recipe", id)
		}
		s.logger.Error("Failed to get recipe", zap.Error(err), zap.Int64("recipe_id", id))
		return nil, NewInternalError("failed to get recipe")
	}
	return recipe, nil
}

// UpdateRecipe edits a recipe owned by the requesting user
func (s *recipeService) UpdateRecipe(ctx context.Context, req *UpdateRecipeRequest) (*models.Recipe, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid update recipe request", err)
	}

	recipe, err := s.ownedRecipe(ctx, req.RecipeID, req.UserID, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		recipe.Title = *req.Title
	}
	if req.Description != nil {
		recipe.Description = req.Description
	}
	if req.Category != nil {
		recipe.Category = *req.Category
	}
	if req.Servings != nil {
		recipe.Servings = *req.Servings
	}
	if req.CostPerServing != nil {
		recipe.CostPerServing = *req.CostPerServing
	}
	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}
	if req.Tags != nil {
		recipe.Tags = *req.Tags
	}

	if err := s.recipeRepo.Update(ctx, recipe); err != nil {
		s.logger.Error("Failed to update recipe", zap.Error(err), zap.Int64("recipe_id", recipe.ID))
		return nil, NewInternalError("failed to update recipe")
	}

	s.publish(ctx, events.NewRecipeUpdatedEvent(recipe.ID, req.UserID))
	return recipe, nil
}

// DeleteRecipe removes a recipe from the catalog. Completed cooking
// sessions keep their denormalized copy of its metadata, so the user's
// badge history is unaffected.
func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, userID int64) error {
	recipe, err := s.ownedRecipe(ctx, recipeID, userID, "delete")
	if err != nil {
		return err
	}

	if err := s.recipeRepo.Delete(ctx, recipeID); err != nil {
		s.logger.Error("Failed to delete recipe", zap.Error(err), zap.Int64("recipe_id", recipeID))
		return NewInternalError("failed to delete recipe")
	}

	if recipe.ImagePublicID != nil && s.images != nil {
		if err := s.images.DeleteImage(ctx, *recipe.ImagePublicID); err != nil {
			s.logger.Warn("Failed to delete recipe image from storage",
				zap.Error(err), zap.Int64("recipe_id", recipeID))
		}
	}

	s.publish(ctx, events.NewRecipeDeletedEvent(recipeID, userID))

	s.logger.Info("Recipe deleted", zap.Int64("recipe_id", recipeID), zap.Int64("user_id", userID))
	return nil
}

// ListRecipes lists the published catalog
func (s *recipeService) ListRecipes(ctx context.Context, req *ListRecipesRequest) (*models.PaginatedResponse[*models.Recipe], error) {
	if req.Pagination.Limit <= 0 {
		req.Pagination.Limit = 20
	}

	page, err := s.recipeRepo.List(ctx, req.Pagination, req.UserID)
	if err != nil {
		s.logger.Error("Failed to list recipes", zap.Error(err))
		return nil, NewInternalError("failed to list recipes")
	}
	return page, nil
}

// GetRecipesByUser lists one author's recipes
func (s *recipeService) GetRecipesByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Recipe], error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	page, err := s.recipeRepo.GetByUserID(ctx, userID, params)
	if err != nil {
		s.logger.Error("Failed to list user recipes", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to list recipes")
	}
	return page, nil
}

// ===============================
// IMAGES
// ===============================

// UploadRecipeImage stores a recipe image and attaches it to the recipe
func (s *recipeService) UploadRecipeImage(ctx context.Context, req *UploadRecipeImageRequest) (*UploadResult, error) {
	if s.images == nil {
		return nil, NewServiceUnavailableError("file uploads are disabled")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid image upload request", err)
	}

	recipe, err := s.ownedRecipe(ctx, req.RecipeID, req.UserID, "upload image for")
	if err != nil {
		return nil, err
	}

	stored, err := s.images.UploadImage(ctx, &utils.ImageUpload{
		Filename: req.Filename,
		Size:     req.Size,
		Reader:   req.Reader,
	})
	if err != nil {
		s.logger.Error("Failed to upload recipe image",
			zap.Error(err), zap.Int64("recipe_id", req.RecipeID))
		return nil, NewValidationError("image upload failed", err)
	}

	oldPublicID := recipe.ImagePublicID
	recipe.ImageURL = &stored.URL
	recipe.ImagePublicID = &stored.PublicID
	if err := s.recipeRepo.Update(ctx, recipe); err != nil {
		s.logger.Error("Failed to attach image to recipe",
			zap.Error(err), zap.Int64("recipe_id", recipe.ID))
		return nil, NewInternalError("failed to attach image to recipe")
	}

	if oldPublicID != nil && *oldPublicID != stored.PublicID {
		if err := s.images.DeleteImage(ctx, *oldPublicID); err != nil {
			s.logger.Warn("Failed to delete replaced recipe image",
				zap.Error(err), zap.Int64("recipe_id", recipe.ID))
		}
	}

	s.publish(ctx, events.NewRecipeImageUploadedEvent(
		recipe.ID, stored.URL, stored.PublicID, int64(stored.Size), &req.UserID,
	))

	return &UploadResult{
		URL:      stored.URL,
		PublicID: stored.PublicID,
		Size:     int64(stored.Size),
		Format:   stored.Format,
	}, nil
}

// ===============================
// COOKING SESSIONS
// ===============================

// StartSession begins cooking a recipe
func (s *recipeService) StartSession(ctx context.Context, req *StartSessionRequest) (*models.CookingSession, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid start session request", err)
	}

	recipe, err := s.recipeRepo.GetByID(ctx, req.RecipeID, &req.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("recipe", req.RecipeID)
		}
		return nil, NewInternalError("failed to load recipe")
	}
	if recipe.Status != "published" {
		return nil, NewBusinessError("recipe is not available for cooking", "RECIPE_NOT_PUBLISHED")
	}

	session := &models.CookingSession{
		UserID:         req.UserID,
		RecipeID:       recipe.ID,
		Status:         "in_progress",
		Servings:       recipe.Servings,
		CostPerServing: recipe.CostPerServing,
		TimeMinutes:    recipe.TimeMinutes,
		Tags:           recipe.Tags,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("Failed to start cooking session",
			zap.Error(err), zap.Int64("recipe_id", recipe.ID), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to start cooking session")
	}
	session.RecipeTitle = recipe.Title

	s.publish(ctx, events.NewSessionStartedEvent(session.ID, recipe.ID, req.UserID))
	return session, nil
}

// CompleteSession finishes a cooking session. The completed session is the
// qualifying domain event that advances badge progress; the badge side
// effect travels on the event bus and can never fail the completion.
func (s *recipeService) CompleteSession(ctx context.Context, req *CompleteSessionRequest) (*models.CookingSession, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid complete session request", err)
	}

	session, err := s.sessionRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("cooking session", req.SessionID)
		}
		return nil, NewInternalError("failed to load cooking session")
	}
	if session.UserID != req.UserID {
		return nil, InsufficientPermissionsError("complete", "cooking session")
	}
	if session.Status == "completed" {
		return session, nil
	}
	if session.Status != "in_progress" {
		return nil, NewBusinessError("session is not in progress", "SESSION_NOT_IN_PROGRESS")
	}

	// Re-snapshot the recipe metadata at completion time. A recipe edited
	// mid-session completes with its current numbers; a recipe deleted
	// mid-session completes with the values captured at start.
	if recipe, err := s.recipeRepo.GetByID(ctx, session.RecipeID, &req.UserID); err == nil && recipe.Status == "published" {
		session.Servings = recipe.Servings
		session.CostPerServing = recipe.CostPerServing
		session.TimeMinutes = recipe.TimeMinutes
		session.Tags = recipe.Tags
	}

	if err := s.sessionRepo.Complete(ctx, session); err != nil {
		s.logger.Error("Failed to complete cooking session",
			zap.Error(err), zap.Int64("session_id", session.ID))
		return nil, NewInternalError("failed to complete cooking session")
	}

	if err := s.recipeRepo.IncrementTimesCooked(ctx, session.RecipeID); err != nil {
		s.logger.Warn("Failed to increment times cooked",
			zap.Error(err), zap.Int64("recipe_id", session.RecipeID))
	}

	completedAt := session.StartedAt
	if session.CompletedAt != nil {
		completedAt = *session.CompletedAt
	}
	if err := s.events.PublishAsync(ctx, events.NewSessionCompletedEvent(
		session.ID, session.RecipeID, session.UserID, completedAt,
	)); err != nil {
		s.logger.Warn("Failed to publish session completed event",
			zap.Error(err), zap.Int64("session_id", session.ID))
	}

	s.logger.Info("Cooking session completed",
		zap.Int64("session_id", session.ID),
		zap.Int64("recipe_id", session.RecipeID),
		zap.Int64("user_id", session.UserID),
	)
	return session, nil
}

// GetSessionsByUser lists a user's cooking sessions
func (s *recipeService) GetSessionsByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.CookingSession], error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	page, err := s.sessionRepo.GetByUserID(ctx, userID, params)
	if err != nil {
		s.logger.Error("Failed to list cooking sessions", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to list cooking sessions")
	}
	return page, nil
}

// ===============================
// INTERNAL HELPERS
// ===============================

// ownedRecipe loads a recipe and checks the requesting user owns it
func (s *recipeService) ownedRecipe(ctx context.Context, recipeID, userID int64, action string) (*models.Recipe, error) {
	if recipeID <= 0 || userID <= 0 {
		return nil, NewValidationError("invalid recipe or user ID", nil)
	}

	recipe, err := s.recipeRepo.GetByID(ctx, recipeID, &userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("recipe", recipeID)
		}
		return nil, NewInternalError("failed to load recipe")
	}
	if recipe.UserID != userID {
		return nil, InsufficientPermissionsError(action, "recipe")
	}
	return recipe, nil
}

func (s *recipeService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish recipe event",
			zap.Error(err), zap.String("event_type", event.GetEventType()))
	}
}
