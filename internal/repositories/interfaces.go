// file: internal/repositories/interfaces.go
package repositories

import (
	"context"
	"platewise/internal/models"
	"time"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// UserRepository defines the contract for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastSeen(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id int64) error
}

// RecipeRepository defines the contract for recipe data operations
type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	GetByID(ctx context.Context, id int64, userID *int64) (*models.Recipe, error)
	Update(ctx context.Context, recipe *models.Recipe) error
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context, params models.PaginationParams, userID *int64) (*models.PaginatedResponse[*models.Recipe], error)
	GetByUserID(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Recipe], error)
	IncrementTimesCooked(ctx context.Context, recipeID int64) error
}

// SessionRepository defines the contract for cooking session operations
type SessionRepository interface {
	Create(ctx context.Context, session *models.CookingSession) error
	GetByID(ctx context.Context, id int64) (*models.CookingSession, error)
	Complete(ctx context.Context, session *models.CookingSession) error
	GetByUserID(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.CookingSession], error)
}

// ActivityRepository is the read-only view of a user's completed cooking
// activity consumed by the badge progress calculator.
type ActivityRepository interface {
	// ListCompleted returns every durably completed cooking session for a
	// user, oldest first. Sessions whose recipe has since been deleted are
	// still included: activity rows are denormalized at completion time.
	ListCompleted(ctx context.Context, userID int64) ([]*models.CompletedActivity, error)
	// GetBySession returns the activity snapshot of one completed session,
	// scoped to its owner. A session that is missing, foreign or not yet
	// completed surfaces as a wrapped sql.ErrNoRows.
	GetBySession(ctx context.Context, userID, sessionID int64) (*models.CompletedActivity, error)
	// CountCompletedSince counts completed sessions after a point in time.
	CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
}

// BadgeRepository defines the contract for the badge catalog and the
// per-user progress store.
type BadgeRepository interface {
	// Catalog (read-only to the pipeline; admin tooling writes it)
	GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error)
	GetBadgeByKey(ctx context.Context, key string) (*models.BadgeDefinition, error)
	ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error)

	// Progress store
	CreateProgress(ctx context.Context, progress *models.BadgeProgress) error
	GetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error)
	GetProgressByID(ctx context.Context, id int64) (*models.BadgeProgress, error)
	// UpdateProgress persists the whole record in a single statement so a
	// completion transition (status, progress, achieved_at) is atomic.
	UpdateProgress(ctx context.Context, progress *models.BadgeProgress) error
	// ClaimNotification atomically claims the right to create the badge
	// earned notification for a progress row. It returns true for exactly
	// one caller per completion cycle.
	ClaimNotification(ctx context.Context, progressID int64) (bool, error)
	// ListUnclaimedCompletions returns the IDs of completed progress rows
	// whose notification has not been claimed. The watcher sweeps these
	// after a change feed reconnect to cover missed notifications.
	ListUnclaimedCompletions(ctx context.Context, limit int) ([]int64, error)

	// Presentation views
	ListProgress(ctx context.Context, userID int64, completed bool, sort string, order string) ([]*models.BadgeProgress, error)
	GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error)
}

// NotificationRepository defines the contract for notification storage
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id int64) (*models.Notification, error)
	List(ctx context.Context, userID int64, unreadOnly bool, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error)
	Delete(ctx context.Context, userID int64, ids []int64) (int64, error)
	// ExistsBadgeEarned reports whether a badge earned notification already
	// exists for the (user, badge) pair.
	ExistsBadgeEarned(ctx context.Context, userID, badgeID int64) (bool, error)
}
