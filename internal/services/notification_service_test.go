// file: internal/services/notification_service_test.go
package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"platewise/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[int64]*models.Notification
	nextID        int64
	createErr     error
}

func (r *fakeNotificationRepo) failCreateWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createErr = err
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		notifications: make(map[int64]*models.Notification),
		nextID:        1,
	}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	notification.ID = r.nextID
	r.nextID++
	stored := *notification
	r.notifications[notification.ID] = &stored
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *n
	return &clone, nil
}

func (r *fakeNotificationRepo) List(ctx context.Context, userID int64, unreadOnly bool, params models.PaginationParams) (*models.PaginatedResponse[*models.Notification], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var data []*models.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		clone := *n
		data = append(data, &clone)
	}
	return &models.PaginatedResponse[*models.Notification]{Data: data}, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for _, id := range ids {
		n, ok := r.notifications[id]
		if !ok || n.UserID != userID || n.ReadAt != nil {
			continue
		}
		now := time.Now().UTC()
		n.ReadAt = &now
		updated++
	}
	return updated, nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		n, ok := r.notifications[id]
		if !ok || n.UserID != userID {
			continue
		}
		delete(r.notifications, id)
		deleted++
	}
	return deleted, nil
}

func (r *fakeNotificationRepo) ExistsBadgeEarned(ctx context.Context, userID, badgeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.UserID != userID || n.Type != models.NotificationTypeBadgeEarned {
			continue
		}
		if id, ok := n.Data["badge_id"].(int64); ok && id == badgeID {
			return true, nil
		}
	}
	return false, nil
}

func newNotificationFixture(t *testing.T) (NotificationService, *fakeNotificationRepo, *fakeBadgeRepo, *fakeEventBus) {
	t.Helper()

	notifications := newFakeNotificationRepo()
	badges := newFakeBadgeRepo()
	bus := &fakeEventBus{}
	svc := NewNotificationService(notifications, badges, bus, zap.NewNop())
	return svc, notifications, badges, bus
}

func TestEmitBadgeEarnedCreatesNotification(t *testing.T) {
	svc, repo, badges, bus := newNotificationFixture(t)
	badge := badges.addBadge(&models.BadgeDefinition{
		Key:         "budget-master",
		Name:        "Budget Master",
		Description: "Cooked three budget meals",
		Category:    models.BadgeCategoryBudget,
		Rarity:      models.BadgeRarityRare,
		XPReward:    100,
	})

	notification, err := svc.EmitBadgeEarned(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	require.NotNil(t, notification)

	assert.Equal(t, models.NotificationTypeBadgeEarned, notification.Type)
	assert.Equal(t, "Badge earned: Budget Master", notification.Title)
	assert.Equal(t, "Cooked three budget meals", notification.Message)
	assert.Equal(t, badge.ID, notification.Data["badge_id"])
	assert.Equal(t, "rare", notification.Data["rarity"])
	assert.NotEmpty(t, notification.Data["earned_at"])

	stored, err := repo.GetByID(context.Background(), notification.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UserID)

	assert.Contains(t, bus.eventTypes(), "notification.created")
}

func TestEmitBadgeEarnedVanishedBadgeIsNoOp(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture(t)

	notification, err := svc.EmitBadgeEarned(context.Background(), 1, 404)
	require.NoError(t, err)
	assert.Nil(t, notification)
	assert.Empty(t, repo.notifications)
}

func TestEmitBadgeEarnedSkipsExistingNotification(t *testing.T) {
	svc, repo, badges, _ := newNotificationFixture(t)
	badge := badges.addBadge(&models.BadgeDefinition{Key: "once", Name: "Once"})

	first, err := svc.EmitBadgeEarned(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// A claim that survived a crashed emission retries into the
	// existence check rather than a second row.
	second, err := svc.EmitBadgeEarned(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, repo.notifications, 1)
}

func TestEmitBadgeEarnedDuplicateInsertRaceIsQuiet(t *testing.T) {
	svc, repo, badges, bus := newNotificationFixture(t)
	badge := badges.addBadge(&models.BadgeDefinition{Key: "raced", Name: "Raced"})

	// A racing emitter slipped between the existence check and the
	// insert; the unique badge earned index rejects the second row.
	repo.failCreateWith(&pq.Error{Code: "23505"})

	notification, err := svc.EmitBadgeEarned(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	assert.Nil(t, notification)
	assert.NotContains(t, bus.eventTypes(), "notification.created")
}

func TestEmitBadgeEarnedValidatesIDs(t *testing.T) {
	svc, _, _, _ := newNotificationFixture(t)

	_, err := svc.EmitBadgeEarned(context.Background(), 0, 1)
	assert.True(t, IsValidationError(err))

	_, err = svc.EmitBadgeEarned(context.Background(), 1, 0)
	assert.True(t, IsValidationError(err))
}

func TestListNotificationsReturnsUnreadCount(t *testing.T) {
	svc, repo, badges, _ := newNotificationFixture(t)
	one := badges.addBadge(&models.BadgeDefinition{Key: "one", Name: "One"})
	two := badges.addBadge(&models.BadgeDefinition{Key: "two", Name: "Two"})

	first, err := svc.EmitBadgeEarned(context.Background(), 1, one.ID)
	require.NoError(t, err)
	_, err = svc.EmitBadgeEarned(context.Background(), 1, two.ID)
	require.NoError(t, err)

	_, err = repo.MarkRead(context.Background(), 1, []int64{first.ID})
	require.NoError(t, err)

	resp, err := svc.ListNotifications(context.Background(), &ListNotificationsRequest{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Notifications.Data, 2)
	assert.Equal(t, int64(1), resp.UnreadCount)

	unread, err := svc.ListNotifications(context.Background(), &ListNotificationsRequest{
		UserID:     1,
		UnreadOnly: true,
	})
	require.NoError(t, err)
	assert.Len(t, unread.Notifications.Data, 1)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	svc, _, badges, _ := newNotificationFixture(t)
	badge := badges.addBadge(&models.BadgeDefinition{Key: "mine", Name: "Mine"})

	owned, err := svc.EmitBadgeEarned(context.Background(), 1, badge.ID)
	require.NoError(t, err)

	updated, err := svc.MarkRead(context.Background(), 2, []int64{owned.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	updated, err = svc.MarkRead(context.Background(), 1, []int64{owned.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestMarkReadRejectsEmptyIDList(t *testing.T) {
	svc, _, _, _ := newNotificationFixture(t)

	_, err := svc.MarkRead(context.Background(), 1, nil)
	assert.True(t, IsValidationError(err))
}

func TestDeleteNotificationsScopedToOwner(t *testing.T) {
	svc, repo, badges, _ := newNotificationFixture(t)
	badge := badges.addBadge(&models.BadgeDefinition{Key: "gone", Name: "Gone"})

	owned, err := svc.EmitBadgeEarned(context.Background(), 1, badge.ID)
	require.NoError(t, err)

	deleted, err := svc.DeleteNotifications(context.Background(), 2, []int64{owned.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
	assert.Len(t, repo.notifications, 1)

	deleted, err = svc.DeleteNotifications(context.Background(), 1, []int64{owned.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, repo.notifications)
}
