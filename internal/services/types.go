// file: internal/services/types.go
package services

import (
	"io"
	"time"

	"platewise/internal/models"
)

// ===============================
// AUTH SERVICE TYPES
// ===============================

// RegisterRequest creates a new account
type RegisterRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	Username    string             `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password    string             `json:"password" validate:"required,min=8"`
	DisplayName string             `json:"display_name" validate:"max=100"`
	DietaryTags models.StringArray `json:"dietary_tags,omitempty"`
}

// LoginRequest authenticates an existing account
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
}

// AuthResponse carries the issued token and the authenticated user
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// TokenClaims is the verified identity extracted from a JWT
type TokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the claims carry the admin role
func (c *TokenClaims) IsAdmin() bool {
	return c.Role == "admin"
}

// ===============================
// USER SERVICE TYPES
// ===============================

// UpdateProfileRequest updates mutable profile fields
type UpdateProfileRequest struct {
	UserID        int64               `json:"-" validate:"required"`
	DisplayName   *string             `json:"display_name,omitempty" validate:"omitempty,max=100"`
	HouseholdSize *int16              `json:"household_size,omitempty" validate:"omitempty,min=0,max=20"`
	DietaryTags   *models.StringArray `json:"dietary_tags,omitempty"`
	AvatarURL     *string             `json:"avatar_url,omitempty"`
}

// ===============================
// RECIPE SERVICE TYPES
// ===============================

// CreateRecipeRequest publishes a new recipe
type CreateRecipeRequest struct {
	UserID         int64              `json:"-" validate:"required"`
	Title          string             `json:"title" validate:"required,min=3,max=255"`
	Description    *string            `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category       string             `json:"category" validate:"required,max=100"`
	Servings       int                `json:"servings" validate:"required,min=1,max=50"`
	CostPerServing float64            `json:"cost_per_serving" validate:"min=0"`
	TimeMinutes    int                `json:"time_minutes" validate:"min=0"`
	Tags           models.StringArray `json:"tags,omitempty"`
}

// UpdateRecipeRequest edits an existing recipe
type UpdateRecipeRequest struct {
	RecipeID       int64               `json:"-" validate:"required"`
	UserID         int64               `json:"-" validate:"required"`
	Title          *string             `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description    *string             `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category       *string             `json:"category,omitempty" validate:"omitempty,max=100"`
	Servings       *int                `json:"servings,omitempty" validate:"omitempty,min=1,max=50"`
	CostPerServing *float64            `json:"cost_per_serving,omitempty" validate:"omitempty,min=0"`
	TimeMinutes    *int                `json:"time_minutes,omitempty" validate:"omitempty,min=0"`
	Tags           *models.StringArray `json:"tags,omitempty"`
}

// ListRecipesRequest lists the published catalog
type ListRecipesRequest struct {
	Pagination models.PaginationParams `json:"pagination"`
	UserID     *int64                  `json:"-"`
}

// UploadRecipeImageRequest attaches an image to a recipe
type UploadRecipeImageRequest struct {
	RecipeID int64     `json:"-" validate:"required"`
	UserID   int64     `json:"-" validate:"required"`
	Filename string    `json:"filename" validate:"required"`
	Size     int64     `json:"size" validate:"required,min=1"`
	Reader   io.Reader `json:"-" validate:"required"`
}

// UploadResult describes a stored file
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Size     int64  `json:"size"`
	Format   string `json:"format,omitempty"`
}

// StartSessionRequest begins cooking a recipe
type StartSessionRequest struct {
	UserID   int64 `json:"-" validate:"required"`
	RecipeID int64 `json:"recipe_id" validate:"required"`
}

// CompleteSessionRequest finishes a cooking session
type CompleteSessionRequest struct {
	UserID    int64 `json:"-" validate:"required"`
	SessionID int64 `json:"-" validate:"required"`
}

// ===============================
// BADGE SERVICE TYPES
// ===============================

// UpdateBadgeProgressRequest is the administrative progress override. A
// COMPLETED status funnels through the same completion transition as the
// organic path.
type UpdateBadgeProgressRequest struct {
	UserID     int64                `json:"-" validate:"required"`
	BadgeID    int64                `json:"-" validate:"required"`
	Status     *models.BadgeStatus  `json:"status,omitempty"`
	Progress   *int                 `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	Milestones models.MilestoneList `json:"milestones,omitempty"`
}

// ListBadgeProgressRequest drives the conquered / unconquered listings
type ListBadgeProgressRequest struct {
	UserID int64  `json:"-" validate:"required"`
	Sort   string `json:"sort,omitempty" validate:"omitempty,oneof=achieved_at progress rarity"`
	Order  string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// ===============================
// NOTIFICATION SERVICE TYPES
// ===============================

// ListNotificationsRequest pages through a user's notifications
type ListNotificationsRequest struct {
	UserID     int64                   `json:"-" validate:"required"`
	UnreadOnly bool                    `json:"unread_only"`
	Pagination models.PaginationParams `json:"pagination"`
}

// NotificationListResponse is the paginated list plus the unread counter
// the client renders as a bell badge
type NotificationListResponse struct {
	Notifications *models.PaginatedResponse[*models.Notification] `json:"notifications"`
	UnreadCount   int64                                           `json:"unread_count"`
}
