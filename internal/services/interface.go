// file: internal/services/interface.go
package services

import (
	"context"

	"platewise/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// AuthService defines authentication business logic
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// UserService defines user profile business logic
type UserService interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*models.User, error)
	DeactivateUser(ctx context.Context, userID int64) error
}

// RecipeService defines recipe and cooking session business logic
type RecipeService interface {
	// Recipe CRUD
	CreateRecipe(ctx context.Context, req *CreateRecipeRequest) (*models.Recipe, error)
	GetRecipeByID(ctx context.Context, id int64, userID *int64) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, req *UpdateRecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, recipeID, userID int64) error
	ListRecipes(ctx context.Context, req *ListRecipesRequest) (*models.PaginatedResponse[*models.Recipe], error)
	GetRecipesByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Recipe], error)

	// Images
	UploadRecipeImage(ctx context.Context, req *UploadRecipeImageRequest) (*UploadResult, error)

	// Cooking sessions. Completing a session is the qualifying domain
	// event for badge progress; the badge side effect can never fail the
	// session itself.
	StartSession(ctx context.Context, req *StartSessionRequest) (*models.CookingSession, error)
	CompleteSession(ctx context.Context, req *CompleteSessionRequest) (*models.CookingSession, error)
	GetSessionsByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.CookingSession], error)
}

// BadgeService defines the badge achievement pipeline: catalog reads,
// progress initialisation, incremental updates, the completion transition
// and the aggregate presentation views.
type BadgeService interface {
	// Catalog
	GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error)
	ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error)

	// Progress lifecycle
	InitializeProgress(ctx context.Context, userID int64) (int, error)
	UpdateMilestoneProgress(ctx context.Context, userID, badgeID int64, increment int) (*models.BadgeProgress, error)
	UpdateProgress(ctx context.Context, req *UpdateBadgeProgressRequest) (*models.BadgeProgress, error)
	ResetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error)

	// ApplyQualifyingActivity advances count-scored badges the given
	// completed session qualifies for, one increment per badge
	ApplyQualifyingActivity(ctx context.Context, userID, sessionID int64) error

	// Recalculation over completed activity, applied to every active badge
	RecalculateAll(ctx context.Context, userID int64) error

	// Completion handling shared by the direct path and the watcher
	HandleCompletion(ctx context.Context, progressID int64) error

	// Presentation views
	GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error)
	GetConquered(ctx context.Context, req *ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error)
	GetUnconquered(ctx context.Context, req *ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error)
}

// NotificationService defines notification business logic, including the
// badge earned emitter used by the completion paths
type NotificationService interface {
	// EmitBadgeEarned creates the durable badge earned notification for a
	// claimed completion. A vanished badge is a silent no-op.
	EmitBadgeEarned(ctx context.Context, userID, badgeID int64) (*models.Notification, error)

	ListNotifications(ctx context.Context, req *ListNotificationsRequest) (*NotificationListResponse, error)
	MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error)
	DeleteNotifications(ctx context.Context, userID int64, ids []int64) (int64, error)
}
