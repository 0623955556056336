// file: internal/repositories/collection.go
package repositories

import (
	"platewise/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances
type Collection struct {
	User         UserRepository
	Recipe       RecipeRepository
	Session      SessionRepository
	Activity     ActivityRepository
	Badge        BadgeRepository
	Notification NotificationRepository
}

// NewCollection creates all repositories with shared dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) *Collection {
	return &Collection{
		User:         NewUserRepository(db, logger),
		Recipe:       NewRecipeRepository(db, logger),
		Session:      NewSessionRepository(db, logger),
		Activity:     NewActivityRepository(db, logger),
		Badge:        NewBadgeRepository(db, logger),
		Notification: NewNotificationRepository(db, logger),
	}
}
