// file: internal/repositories/badge_repository_test.go
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"platewise/internal/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The services layer distinguishes a missing row from a broken query with
// IsNotFound, so the getters must let sql.ErrNoRows travel out wrapped
// instead of flattening it to a nil record.

func newMockBadgeRepo(t *testing.T) (BadgeRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	manager := database.NewManagerFromDB(db, zap.NewNop())
	return NewBadgeRepository(manager, zap.NewNop()), mock
}

func TestGetBadgeByIDMissingRowSurfacesAsNotFound(t *testing.T) {
	repo, mock := newMockBadgeRepo(t)
	mock.ExpectQuery(`SELECT (.+) FROM badges WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	badge, err := repo.GetBadgeByID(context.Background(), 404)
	require.Error(t, err)
	assert.Nil(t, badge)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProgressMissingRowSurfacesAsNotFound(t *testing.T) {
	repo, mock := newMockBadgeRepo(t)
	mock.ExpectQuery(`SELECT (.+) FROM badge_progress p (.+) WHERE p\.user_id = \$1 AND p\.badge_id = \$2`).
		WithArgs(int64(1), int64(2)).
		WillReturnError(sql.ErrNoRows)

	progress, err := repo.GetProgress(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Nil(t, progress)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBadgeByIDQueryFailureIsNotANotFound(t *testing.T) {
	repo, mock := newMockBadgeRepo(t)
	mock.ExpectQuery(`SELECT (.+) FROM badges WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	badge, err := repo.GetBadgeByID(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, badge)
	assert.False(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBadgeByIDScansCatalogRow(t *testing.T) {
	repo, mock := newMockBadgeRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM badges WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "key", "name", "description", "category", "rarity",
			"requirements", "criteria", "xp_reward", "is_active", "created_at", "updated_at",
		}).AddRow(
			int64(7), "budget-master", "Budget Master", "Cook cheap", "budget", "rare",
			[]byte(`{Cook 3 budget meals}`),
			[]byte(`[{"name":"cooks","type":"count","target":3,"weight":1}]`),
			100, true, now, nil,
		))

	badge, err := repo.GetBadgeByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "budget-master", badge.Key)
	require.Len(t, badge.Requirements, 1)
	require.Len(t, badge.Criteria, 1)
	assert.Equal(t, float64(3), badge.Criteria[0].Target)
	assert.NoError(t, mock.ExpectationsWereMet())
}
