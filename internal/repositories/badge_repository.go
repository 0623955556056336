// file: internal/repositories/badge_repository.go
package repositories

import (
	"context"
	"fmt"
	"platewise/internal/database"
	"platewise/internal/models"
	"strings"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over the badges catalog and
// the badge_progress store. A unique index on (user_id, badge_id) enforces
// the one-record-per-pair invariant at the storage layer.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeColumns = `
	id, key, name, description, category, rarity,
	requirements, criteria, xp_reward, is_active, created_at, updated_at`

// ===============================
// CATALOG READS
// ===============================

// GetBadgeByID retrieves a single catalog entry. A missing badge surfaces
// as a wrapped sql.ErrNoRows so callers can test it with IsNotFound.
func (r *badgeRepository) GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE id = $1`, badgeColumns)

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get badge by id: %w", err)
	}
	return badge, nil
}

// GetBadgeByKey retrieves a catalog entry by its stable key
func (r *badgeRepository) GetBadgeByKey(ctx context.Context, key string) (*models.BadgeDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE key = $1`, badgeColumns)

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, fmt.Errorf("failed to get badge by key: %w", err)
	}
	return badge, nil
}

// ListActiveBadges returns every active catalog entry
func (r *badgeRepository) ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE is_active = true ORDER BY category, rarity, id`, badgeColumns)

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.BadgeDefinition
	for rows.Next() {
		badge, err := r.scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}

// ===============================
// PROGRESS STORE
// ===============================

// CreateProgress inserts a new progress record. The unique constraint on
// (user_id, badge_id) rejects duplicates.
func (r *badgeRepository) CreateProgress(ctx context.Context, progress *models.BadgeProgress) error {
	query := `
		INSERT INTO badge_progress (
			user_id, badge_id, status, progress, milestones, achieved_at, notified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, last_updated, created_at`

	err := r.QueryRowContext(
		ctx, query,
		progress.UserID, progress.BadgeID, progress.Status, progress.Progress,
		progress.Milestones, progress.AchievedAt, progress.NotifiedAt,
	).Scan(&progress.ID, &progress.LastUpdated, &progress.CreatedAt)

	if err != nil {
		r.GetLogger().Error("Failed to create badge progress",
			zap.Error(err),
			zap.Int64("user_id", progress.UserID),
			zap.Int64("badge_id", progress.BadgeID),
		)
		return fmt.Errorf("failed to create badge progress: %w", err)
	}
	return nil
}

// GetProgress retrieves the progress record for a (user, badge) pair with
// the catalog entry joined. A user who does not track the badge surfaces
// as a wrapped sql.ErrNoRows.
func (r *badgeRepository) GetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error) {
	query := progressSelect + ` WHERE p.user_id = $1 AND p.badge_id = $2`

	progress, err := r.scanProgress(r.QueryRowContext(ctx, query, userID, badgeID))
	if err != nil {
		return nil, fmt.Errorf("failed to get badge progress: %w", err)
	}
	return progress, nil
}

// GetProgressByID retrieves a progress record by primary key
func (r *badgeRepository) GetProgressByID(ctx context.Context, id int64) (*models.BadgeProgress, error) {
	query := progressSelect + ` WHERE p.id = $1`

	progress, err := r.scanProgress(r.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get badge progress by id: %w", err)
	}
	return progress, nil
}

// UpdateProgress persists the whole record in one statement. Status,
// progress, milestones and achieved_at always travel together so an
// observer can never see progress=100 without status=COMPLETED.
func (r *badgeRepository) UpdateProgress(ctx context.Context, progress *models.BadgeProgress) error {
	query := `
		UPDATE badge_progress SET
			status = $1,
			progress = $2,
			milestones = $3,
			achieved_at = $4,
			notified_at = $5,
			last_updated = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING last_updated`

	err := r.QueryRowContext(
		ctx, query,
		progress.Status, progress.Progress, progress.Milestones,
		progress.AchievedAt, progress.NotifiedAt, progress.ID,
	).Scan(&progress.LastUpdated)

	if err != nil {
		r.GetLogger().Error("Failed to update badge progress",
			zap.Error(err),
			zap.Int64("progress_id", progress.ID),
			zap.Int64("user_id", progress.UserID),
			zap.Int64("badge_id", progress.BadgeID),
		)
		return fmt.Errorf("failed to update badge progress: %w", err)
	}
	return nil
}

// ClaimNotification claims the one-shot right to emit the badge earned
// notification for a progress row. The conditional update makes the claim
// atomic: exactly one caller per completion cycle sees true.
func (r *badgeRepository) ClaimNotification(ctx context.Context, progressID int64) (bool, error) {
	query := `
		UPDATE badge_progress
		SET notified_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND notified_at IS NULL AND status = 'COMPLETED'`

	result, err := r.ExecContext(ctx, query, progressID)
	if err != nil {
		return false, fmt.Errorf("failed to claim badge notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}

// ListUnclaimedCompletions returns completed progress rows that still owe
// a notification, oldest completion first
func (r *badgeRepository) ListUnclaimedCompletions(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id FROM badge_progress
		WHERE status = 'COMPLETED' AND notified_at IS NULL
		ORDER BY achieved_at ASC NULLS LAST
		LIMIT $1`

	rows, err := r.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclaimed completions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unclaimed completion: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ===============================
// PRESENTATION VIEWS
// ===============================

const progressSelect = `
	SELECT
		p.id, p.user_id, p.badge_id, p.status, p.progress, p.milestones,
		p.achieved_at, p.notified_at, p.last_updated, p.created_at,
		b.id, b.key, b.name, b.description, b.category, b.rarity,
		b.requirements, b.criteria, b.xp_reward, b.is_active, b.created_at, b.updated_at
	FROM badge_progress p
	INNER JOIN badges b ON p.badge_id = b.id`

// progressSortClauses whitelists the sort keys the badge listing exposes.
// Rarity sorts by rank, not alphabetically.
var progressSortClauses = map[string]string{
	"achieved_at": "p.achieved_at",
	"progress":    "p.progress",
	"rarity": `CASE b.rarity
		WHEN 'common' THEN 0 WHEN 'rare' THEN 1
		WHEN 'epic' THEN 2 WHEN 'legendary' THEN 3 ELSE 4 END`,
}

// ListProgress returns a user's progress records joined with the catalog,
// filtered on completion and ordered by a whitelisted sort key.
func (r *badgeRepository) ListProgress(ctx context.Context, userID int64, completed bool, sort string, order string) ([]*models.BadgeProgress, error) {
	clause, ok := progressSortClauses[sort]
	if !ok {
		clause = progressSortClauses["achieved_at"]
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	statusOp := "!="
	if completed {
		statusOp = "="
	}

	query := progressSelect + fmt.Sprintf(
		` WHERE p.user_id = $1 AND p.status %s 'COMPLETED' AND b.is_active = true
		  ORDER BY b.category, %s %s NULLS LAST, b.id`,
		statusOp, clause, strings.ToUpper(order),
	)

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge progress: %w", err)
	}
	defer rows.Close()

	var records []*models.BadgeProgress
	for rows.Next() {
		progress, err := r.scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge progress: %w", err)
		}
		records = append(records, progress)
	}
	return records, rows.Err()
}

// GetStats aggregates a user's badge standing across the active catalog
func (r *badgeRepository) GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	query := `
		SELECT
			b.category,
			COUNT(*),
			COUNT(*) FILTER (WHERE p.status = 'COMPLETED'),
			COALESCE(SUM(b.xp_reward) FILTER (WHERE p.status = 'COMPLETED'), 0)
		FROM badges b
		LEFT JOIN badge_progress p ON p.badge_id = b.id AND p.user_id = $1
		WHERE b.is_active = true
		GROUP BY b.category`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge stats: %w", err)
	}
	defer rows.Close()

	stats := &models.BadgeStats{
		PerCategory: make(map[models.BadgeCategory]models.CategoryProgress),
	}
	for rows.Next() {
		var category models.BadgeCategory
		var total, completed, xp int
		if err := rows.Scan(&category, &total, &completed, &xp); err != nil {
			return nil, fmt.Errorf("failed to scan badge stats: %w", err)
		}
		stats.TotalBadges += total
		stats.CompletedBadges += completed
		stats.TotalXP += xp
		stats.PerCategory[category] = models.CategoryProgress{
			Total:     total,
			Completed: completed,
		}
	}
	return stats, rows.Err()
}

// ===============================
// SCAN HELPERS
// ===============================

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *badgeRepository) scanBadge(row rowScanner) (*models.BadgeDefinition, error) {
	var badge models.BadgeDefinition
	err := row.Scan(
		&badge.ID, &badge.Key, &badge.Name, &badge.Description,
		&badge.Category, &badge.Rarity, &badge.Requirements, &badge.Criteria,
		&badge.XPReward, &badge.IsActive, &badge.CreatedAt, &badge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *badgeRepository) scanProgress(row rowScanner) (*models.BadgeProgress, error) {
	var progress models.BadgeProgress
	var badge models.BadgeDefinition
	err := row.Scan(
		&progress.ID, &progress.UserID, &progress.BadgeID, &progress.Status,
		&progress.Progress, &progress.Milestones, &progress.AchievedAt,
		&progress.NotifiedAt, &progress.LastUpdated, &progress.CreatedAt,
		&badge.ID, &badge.Key, &badge.Name, &badge.Description,
		&badge.Category, &badge.Rarity, &badge.Requirements, &badge.Criteria,
		&badge.XPReward, &badge.IsActive, &badge.CreatedAt, &badge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	progress.Badge = &badge
	return &progress, nil
}
