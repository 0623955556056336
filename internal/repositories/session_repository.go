// file: internal/repositories/session_repository.go
package repositories

import (
	"context"
	"fmt"
	"platewise/internal/database"
	"platewise/internal/models"
	"time"

	"go.uber.org/zap"
)

// sessionRepository implements SessionRepository and ActivityRepository
// over the cooking_sessions table. Completed rows double as the activity
// feed the badge calculator reads.
type sessionRepository struct {
	*BaseRepository
}

// NewSessionRepository creates a new cooking session repository
func NewSessionRepository(db *database.Manager, logger *zap.Logger) SessionRepository {
	return &sessionRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// NewActivityRepository creates the calculator's read-only activity view
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityRepository {
	return &sessionRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create starts a cooking session
func (r *sessionRepository) Create(ctx context.Context, session *models.CookingSession) error {
	query := `
		INSERT INTO cooking_sessions (
			user_id, recipe_id, status, servings, cost_per_serving, time_minutes, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, started_at`

	err := r.QueryRowContext(
		ctx, query,
		session.UserID, session.RecipeID, session.Status,
		session.Servings, session.CostPerServing, session.TimeMinutes, session.Tags,
	).Scan(&session.ID, &session.StartedAt)

	if err != nil {
		r.GetLogger().Error("Failed to create cooking session",
			zap.Error(err),
			zap.Int64("user_id", session.UserID),
			zap.Int64("recipe_id", session.RecipeID),
		)
		return fmt.Errorf("failed to create cooking session: %w", err)
	}
	return nil
}

// GetByID retrieves a cooking session with the recipe title joined
func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*models.CookingSession, error) {
	query := `
		SELECT
			s.id, s.user_id, s.recipe_id, s.status,
			s.servings, s.cost_per_serving, s.time_minutes, s.tags,
			s.started_at, s.completed_at,
			COALESCE(r.title, '')
		FROM cooking_sessions s
		LEFT JOIN recipes r ON s.recipe_id = r.id
		WHERE s.id = $1`

	var session models.CookingSession
	err := r.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.RecipeID, &session.Status,
		&session.Servings, &session.CostPerServing, &session.TimeMinutes, &session.Tags,
		&session.StartedAt, &session.CompletedAt,
		&session.RecipeTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get cooking session: %w", err)
	}
	return &session, nil
}

// Complete marks the session completed and snapshots the recipe metadata
// in the same statement. The status guard makes completion idempotent.
func (r *sessionRepository) Complete(ctx context.Context, session *models.CookingSession) error {
	query := `
		UPDATE cooking_sessions SET
			status = 'completed',
			completed_at = CURRENT_TIMESTAMP,
			servings = $1,
			cost_per_serving = $2,
			time_minutes = $3,
			tags = $4
		WHERE id = $5 AND user_id = $6 AND status = 'in_progress'
		RETURNING completed_at`

	err := r.QueryRowContext(
		ctx, query,
		session.Servings, session.CostPerServing, session.TimeMinutes, session.Tags,
		session.ID, session.UserID,
	).Scan(&session.CompletedAt)

	if err != nil {
		if r.IsNotFound(err) {
			return fmt.Errorf("session not in progress: %w", err)
		}
		return fmt.Errorf("failed to complete cooking session: %w", err)
	}
	session.Status = "completed"
	return nil
}

// GetByUserID lists a user's sessions, newest first
func (r *sessionRepository) GetByUserID(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.CookingSession], error) {
	countQuery := `SELECT COUNT(*) FROM cooking_sessions WHERE user_id = $1`
	total, err := r.GetTotalCount(ctx, countQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cooking sessions: %w", err)
	}

	if params.Sort == "" {
		params.Sort = "started_at"
	}
	if params.Sort != "started_at" && params.Sort != "completed_at" {
		params.Sort = "started_at"
	}
	if params.Order != "asc" {
		params.Order = "desc"
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	query := fmt.Sprintf(`
		SELECT
			s.id, s.user_id, s.recipe_id, s.status,
			s.servings, s.cost_per_serving, s.time_minutes, s.tags,
			s.started_at, s.completed_at,
			COALESCE(r.title, '')
		FROM cooking_sessions s
		LEFT JOIN recipes r ON s.recipe_id = r.id
		WHERE s.user_id = $1
		ORDER BY s.%s %s NULLS LAST
		LIMIT $2 OFFSET $3`, params.Sort, orderKeyword(params.Order))

	rows, err := r.QueryContext(ctx, query, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cooking sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.CookingSession, 0)
	for rows.Next() {
		var session models.CookingSession
		err := rows.Scan(
			&session.ID, &session.UserID, &session.RecipeID, &session.Status,
			&session.Servings, &session.CostPerServing, &session.TimeMinutes, &session.Tags,
			&session.StartedAt, &session.CompletedAt,
			&session.RecipeTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cooking session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.CookingSession]{
		Data:       sessions,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// ===============================
// ACTIVITY VIEW
// ===============================

// ListCompleted returns every completed session for the user, oldest
// first, as calculator read models. Rows survive recipe deletion because
// the metadata was denormalized at completion time.
func (r *sessionRepository) ListCompleted(ctx context.Context, userID int64) ([]*models.CompletedActivity, error) {
	query := `
		SELECT recipe_id, completed_at, cost_per_serving, servings, time_minutes, tags
		FROM cooking_sessions
		WHERE user_id = $1 AND status = 'completed' AND completed_at IS NOT NULL
		ORDER BY completed_at ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed activity: %w", err)
	}
	defer rows.Close()

	var activities []*models.CompletedActivity
	for rows.Next() {
		var a models.CompletedActivity
		err := rows.Scan(
			&a.RecipeID, &a.CompletedAt, &a.CostPerServing,
			&a.Servings, &a.TimeMinutes, &a.Tags,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completed activity: %w", err)
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

// GetBySession returns one completed session as a calculator read model
func (r *sessionRepository) GetBySession(ctx context.Context, userID, sessionID int64) (*models.CompletedActivity, error) {
	query := `
		SELECT recipe_id, completed_at, cost_per_serving, servings, time_minutes, tags
		FROM cooking_sessions
		WHERE id = $1 AND user_id = $2 AND status = 'completed' AND completed_at IS NOT NULL`

	var a models.CompletedActivity
	err := r.QueryRowContext(ctx, query, sessionID, userID).Scan(
		&a.RecipeID, &a.CompletedAt, &a.CostPerServing,
		&a.Servings, &a.TimeMinutes, &a.Tags,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed activity: %w", err)
	}
	return &a, nil
}

// CountCompletedSince counts completed sessions after a point in time
func (r *sessionRepository) CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM cooking_sessions
		WHERE user_id = $1 AND status = 'completed' AND completed_at > $2`
	return r.GetTotalCount(ctx, query, userID, since)
}

// orderKeyword maps a validated order param to its SQL keyword
func orderKeyword(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}
