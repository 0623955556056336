// file: internal/models/models.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// User represents an account in the system
type User struct {
	ID       int64  `json:"id" db:"id"`
	Email    string `json:"email" db:"email" validate:"required,email,max=320"`
	Username string `json:"username" db:"username" validate:"required,min=3,max=50,alphanum"`

	// Authentication
	PasswordHash string `json:"-" db:"password_hash"`
	IsActive     bool   `json:"is_active" db:"is_active"`

	// Profile information
	DisplayName     string  `json:"display_name" db:"display_name"`
	AvatarURL       *string `json:"avatar_url,omitempty" db:"avatar_url"`
	AvatarPublicID  *string `json:"avatar_public_id,omitempty" db:"avatar_public_id"`
	HouseholdSize   int16   `json:"household_size" db:"household_size" validate:"min=0,max=20"`
	DietaryTags     StringArray `json:"dietary_tags" db:"dietary_tags"`

	// System fields
	Role string `json:"role" db:"role" validate:"required,oneof=user admin"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`

	// Computed/joined fields (not in DB)
	RecipesCount  int `json:"recipes_count,omitempty" db:"-"`
	SessionsCount int `json:"sessions_count,omitempty" db:"-"`
	BadgeCount    int `json:"badge_count,omitempty" db:"-"`
	TotalXP       int `json:"total_xp,omitempty" db:"-"`
}

// Recipe represents a recipe with cost and serving metadata
type Recipe struct {
	// Core fields
	ID          int64   `json:"id" db:"id"`
	UserID      int64   `json:"user_id" db:"user_id" validate:"required"`
	Title       string  `json:"title" db:"title" validate:"required,min=3,max=255"`
	Description *string `json:"description,omitempty" db:"description" validate:"omitempty,max=5000"`
	Category    string  `json:"category" db:"category" validate:"required,max=100"`
	Status      string  `json:"status" db:"status" validate:"oneof=draft published archived deleted"`

	// Cooking metadata
	Servings       int     `json:"servings" db:"servings" validate:"min=1,max=50"`
	CostPerServing float64 `json:"cost_per_serving" db:"cost_per_serving" validate:"min=0"`
	TimeMinutes    int     `json:"time_minutes" db:"time_minutes" validate:"min=0"`
	Tags           StringArray `json:"tags" db:"tags"`

	// Media
	ImageURL      *string `json:"image_url,omitempty" db:"image_url"`
	ImagePublicID *string `json:"image_public_id,omitempty" db:"image_public_id"`

	// Engagement tracking
	TimesCooked int `json:"times_cooked" db:"times_cooked"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Author information (joined)
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`

	// User-specific fields (requires user context)
	IsOwner bool `json:"is_owner" db:"-"`
}

// CookingSession represents one cooking of a recipe by a user.
// A completed session is the qualifying domain event that advances
// badge progress.
type CookingSession struct {
	ID       int64  `json:"id" db:"id"`
	UserID   int64  `json:"user_id" db:"user_id" validate:"required"`
	RecipeID int64  `json:"recipe_id" db:"recipe_id" validate:"required"`
	Status   string `json:"status" db:"status" validate:"oneof=in_progress completed abandoned"`

	// Denormalized from the recipe at completion time so the activity
	// history survives recipe edits and deletions.
	Servings       int     `json:"servings" db:"servings"`
	CostPerServing float64 `json:"cost_per_serving" db:"cost_per_serving"`
	TimeMinutes    int     `json:"time_minutes" db:"time_minutes"`
	Tags           StringArray `json:"tags" db:"tags"`

	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Joined fields
	RecipeTitle string `json:"recipe_title" db:"-"`
}

// CompletedActivity is the read model the badge progress calculator
// consumes: one row per durably completed cooking session.
type CompletedActivity struct {
	RecipeID       int64       `json:"recipe_id" db:"recipe_id"`
	CompletedAt    time.Time   `json:"completed_at" db:"completed_at"`
	CostPerServing float64     `json:"cost_per_serving" db:"cost_per_serving"`
	Servings       int         `json:"servings" db:"servings"`
	TimeMinutes    int         `json:"time_minutes" db:"time_minutes"`
	Tags           StringArray `json:"tags" db:"tags"`
}

// ===============================
// PAGINATION & QUERY HELPERS
// ===============================

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Cursor string `json:"cursor,omitempty"` // For cursor-based pagination
	Sort   string `json:"sort,omitempty"`
	Order  string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// CalculateOffset calculates offset from page and limit
func (p *PaginationParams) CalculateOffset() int {
	if p.Offset > 0 {
		return p.Offset
	}
	page := p.Offset/p.Limit + 1
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage  int    `json:"current_page"`
	TotalPages   int    `json:"total_pages"`
	TotalItems   int64  `json:"total_items"`
	ItemsPerPage int    `json:"items_per_page"`
	HasNext      bool   `json:"has_next"`
	HasPrev      bool   `json:"has_prev"`
	NextCursor   string `json:"next_cursor,omitempty"`
	PrevCursor   string `json:"prev_cursor,omitempty"`
}

// ===============================
// CUSTOM TYPES
// ===============================

// StringArray handles PostgreSQL array types
type StringArray []string

// Scan implements sql.Scanner
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {item1,item2,item3}
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Value implements driver.Valuer
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(s, ",") + "}", nil
}

// Contains reports whether the array holds the given tag
func (s StringArray) Contains(tag string) bool {
	for _, t := range s {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ===============================
// HELPER METHODS
// ===============================

// IsOwnedBy checks if the user owns the recipe
func (r *Recipe) IsOwnedBy(userID int64) bool {
	return r.UserID == userID
}

// IsPublished checks if the recipe is published
func (r *Recipe) IsPublished() bool {
	return r.Status == "published"
}

// IsCompleted checks if a cooking session finished
func (c *CookingSession) IsCompleted() bool {
	return c.Status == "completed" && c.CompletedAt != nil
}

// ===============================
// VALIDATION HELPERS
// ===============================

// ValidateRecipeStatus validates recipe status enum
func ValidateRecipeStatus(status string) bool {
	validStatuses := []string{"draft", "published", "archived", "deleted"}
	for _, valid := range validStatuses {
		if status == valid {
			return true
		}
	}
	return false
}

// ValidateSessionStatus validates cooking session status enum
func ValidateSessionStatus(status string) bool {
	validStatuses := []string{"in_progress", "completed", "abandoned"}
	for _, valid := range validStatuses {
		if status == valid {
			return true
		}
	}
	return false
}

// ValidateUserRole validates user role enum
func ValidateUserRole(role string) bool {
	validRoles := []string{"user", "admin"}
	for _, valid := range validRoles {
		if role == valid {
			return true
		}
	}
	return false
}
