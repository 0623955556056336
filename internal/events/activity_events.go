// file: internal/events/activity_events.go
package events

import "time"

// ===============================
// RECIPE EVENTS
// ===============================

// RecipeCreatedEvent is emitted when a recipe is published
type RecipeCreatedEvent struct {
	BaseEvent
	RecipeID int64  `json:"recipe_id"`
	Title    string `json:"title"`
}

// NewRecipeCreatedEvent creates a new RecipeCreatedEvent
func NewRecipeCreatedEvent(recipeID, userID int64, title string) *RecipeCreatedEvent {
	return &RecipeCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "recipe.created",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		RecipeID: recipeID,
		Title:    title,
	}
}

// RecipeUpdatedEvent is emitted when a recipe is edited
type RecipeUpdatedEvent struct {
	BaseEvent
	RecipeID int64 `json:"recipe_id"`
}

// NewRecipeUpdatedEvent creates a new RecipeUpdatedEvent
func NewRecipeUpdatedEvent(recipeID, userID int64) *RecipeUpdatedEvent {
	return &RecipeUpdatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "recipe.updated",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		RecipeID: recipeID,
	}
}

// RecipeDeletedEvent is emitted when a recipe is removed from the catalog
type RecipeDeletedEvent struct {
	BaseEvent
	RecipeID int64 `json:"recipe_id"`
}

// NewRecipeDeletedEvent creates a new RecipeDeletedEvent
func NewRecipeDeletedEvent(recipeID, userID int64) *RecipeDeletedEvent {
	return &RecipeDeletedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "recipe.deleted",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		RecipeID: recipeID,
	}
}

// RecipeImageUploadedEvent is emitted after a recipe image lands in storage
type RecipeImageUploadedEvent struct {
	BaseEvent
	RecipeID int64  `json:"recipe_id"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	FileSize int64  `json:"file_size"`
}

// NewRecipeImageUploadedEvent creates a new RecipeImageUploadedEvent
func NewRecipeImageUploadedEvent(recipeID int64, url, publicID string, fileSize int64, userID *int64) *RecipeImageUploadedEvent {
	return &RecipeImageUploadedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "recipe.image_uploaded",
			Timestamp: time.Now(),
			UserID:    userID,
		},
		RecipeID: recipeID,
		URL:      url,
		PublicID: publicID,
		FileSize: fileSize,
	}
}

// ===============================
// COOKING SESSION EVENTS
// ===============================

// SessionStartedEvent is emitted when a user starts cooking a recipe
type SessionStartedEvent struct {
	BaseEvent
	SessionID int64 `json:"session_id"`
	RecipeID  int64 `json:"recipe_id"`
}

// NewSessionStartedEvent creates a new SessionStartedEvent
func NewSessionStartedEvent(sessionID, recipeID, userID int64) *SessionStartedEvent {
	return &SessionStartedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "session.started",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		SessionID: sessionID,
		RecipeID:  recipeID,
	}
}

// SessionCompletedEvent is emitted when a cooking session finishes. Badge
// progress recalculation hangs off this event.
type SessionCompletedEvent struct {
	BaseEvent
	SessionID   int64     `json:"session_id"`
	RecipeID    int64     `json:"recipe_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent
func NewSessionCompletedEvent(sessionID, recipeID, userID int64, completedAt time.Time) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "session.completed",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		SessionID:   sessionID,
		RecipeID:    recipeID,
		CompletedAt: completedAt,
	}
}

// ===============================
// USER EVENTS
// ===============================

// UserRegisteredEvent is emitted when a new account is created
type UserRegisteredEvent struct {
	BaseEvent
	Email    string `json:"email"`
	Username string `json:"username"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(userID int64, email, username string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "user.registered",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		Email:    email,
		Username: username,
	}
}

// UserLoggedInEvent is emitted on successful authentication
type UserLoggedInEvent struct {
	BaseEvent
	IPAddress string `json:"ip_address,omitempty"`
}

// NewUserLoggedInEvent creates a new UserLoggedInEvent
func NewUserLoggedInEvent(userID int64, ipAddress string) *UserLoggedInEvent {
	return &UserLoggedInEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "user.logged_in",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		IPAddress: ipAddress,
	}
}
