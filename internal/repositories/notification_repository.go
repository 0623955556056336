// file: internal/repositories/notification_repository.go
package repositories

import (
	"context"
	"fmt"
	"platewise/internal/database"
	"platewise/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// notificationRepository implements NotificationRepository
type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.Manager, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const notificationColumns = `
	id, user_id, type, title, message, data, is_read, read_at, created_at, updated_at`

// Create inserts a notification record
func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		notification.UserID, notification.Type, notification.Title,
		notification.Message, notification.Data,
	).Scan(&notification.ID, &notification.IsRead, &notification.CreatedAt, &notification.UpdatedAt)

	if err != nil {
		r.GetLogger().Error("Failed to create notification",
			zap.Error(err),
			zap.Int64("user_id", notification.UserID),
			zap.String("type", notification.Type),
		)
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by primary key
func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationColumns)

	notification, err := r.scanNotification(r.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return notification, nil
}

// List returns a user's notifications, newest first
func (r *notificationRepository) List(ctx context.Context, userID int64, unreadOnly bool, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	whereClause := "user_id = $1"
	if unreadOnly {
		whereClause += " AND is_read = false"
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM notifications WHERE %s`, whereClause)
	total, err := r.GetTotalCount(ctx, countQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	if params.Sort == "" {
		params.Sort = "created_at"
	}
	baseQuery := fmt.Sprintf(`SELECT %s FROM notifications`, notificationColumns)
	query, args := r.BuildPaginatedQuery(baseQuery, whereClause, "", params, 1)
	args = append([]interface{}{userID}, args...)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		notification, err := r.scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Notification]{
		Data:       notifications,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// CountUnread returns the number of unread notifications for a user
func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	return r.GetTotalCount(ctx, query, userID)
}

// MarkRead marks the given notifications read for the user. IDs belonging
// to other users are silently skipped; the return value is the number of
// rows actually updated.
func (r *notificationRepository) MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND id = ANY($2) AND is_read = false`

	result, err := r.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes the given notifications for the user
func (r *notificationRepository) Delete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	query := `DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`

	result, err := r.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected()
}

// ExistsBadgeEarned reports whether a badge earned notification already
// exists for the (user, badge) pair. Used as a backstop when the
// notification claim state is ambiguous.
func (r *notificationRepository) ExistsBadgeEarned(ctx context.Context, userID, badgeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND type = $2 AND (data->>'badge_id')::bigint = $3
		)`

	var exists bool
	err := r.QueryRowContext(ctx, query, userID, models.NotificationTypeBadgeEarned, badgeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check badge notification: %w", err)
	}
	return exists, nil
}

func (r *notificationRepository) scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data,
		&n.IsRead, &n.ReadAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
