// file: internal/services/completion_watcher_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"platewise/internal/cache"
	"platewise/internal/config"
	"platewise/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBadgeService records the completion calls the watcher hands over.
type fakeBadgeService struct {
	mu      sync.Mutex
	handled []int64
}

func (s *fakeBadgeService) HandleCompletion(ctx context.Context, progressID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = append(s.handled, progressID)
	return nil
}

func (s *fakeBadgeService) handledIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.handled...)
}

func (s *fakeBadgeService) GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error) {
	return nil, nil
}

func (s *fakeBadgeService) ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error) {
	return nil, nil
}

func (s *fakeBadgeService) InitializeProgress(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}

func (s *fakeBadgeService) UpdateMilestoneProgress(ctx context.Context, userID, badgeID int64, increment int) (*models.BadgeProgress, error) {
	return nil, nil
}

func (s *fakeBadgeService) UpdateProgress(ctx context.Context, req *UpdateBadgeProgressRequest) (*models.BadgeProgress, error) {
	return nil, nil
}

func (s *fakeBadgeService) ResetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error) {
	return nil, nil
}

func (s *fakeBadgeService) ApplyQualifyingActivity(ctx context.Context, userID, sessionID int64) error {
	return nil
}

func (s *fakeBadgeService) RecalculateAll(ctx context.Context, userID int64) error { return nil }

func (s *fakeBadgeService) GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	return nil, nil
}

func (s *fakeBadgeService) GetConquered(ctx context.Context, req *ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error) {
	return nil, nil
}

func (s *fakeBadgeService) GetUnconquered(ctx context.Context, req *ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error) {
	return nil, nil
}

// fakeChangeFeed stands in for the listening connection with channels the
// test never feeds, leaving the sweep paths as the only event source.
type fakeChangeFeed struct {
	notifications chan *pq.Notification
	reconnects    chan struct{}
}

func newFakeChangeFeed() *fakeChangeFeed {
	return &fakeChangeFeed{
		notifications: make(chan *pq.Notification),
		reconnects:    make(chan struct{}),
	}
}

func (f *fakeChangeFeed) Notifications() <-chan *pq.Notification { return f.notifications }
func (f *fakeChangeFeed) Reconnects() <-chan struct{}            { return f.reconnects }
func (f *fakeChangeFeed) Ping(ctx context.Context) error         { return nil }

func newTestWatcher(t *testing.T) (*CompletionWatcher, *fakeBadgeService, *fakeBadgeRepo) {
	t.Helper()

	badges := &fakeBadgeService{}
	repo := newFakeBadgeRepo()
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	cfg := config.BadgeConfig{
		DedupeTTL:         time.Minute,
		WatcherMinBackoff: time.Millisecond,
		WatcherMaxBackoff: 10 * time.Millisecond,
	}

	watcher := NewCompletionWatcher(nil, badges, repo, c, cfg, zap.NewNop())
	return watcher, badges, repo
}

func completionEvent(extra string) *pq.Notification {
	return &pq.Notification{Channel: "badge_completions", Extra: extra}
}

func TestHandleNotificationDispatchesCompletion(t *testing.T) {
	watcher, badges, _ := newTestWatcher(t)

	watcher.handleNotification(context.Background(),
		completionEvent(`{"progress_id": 7, "user_id": 1, "badge_id": 3}`))

	assert.Equal(t, []int64{7}, badges.handledIDs())
}

func TestHandleNotificationSuppressesDuplicates(t *testing.T) {
	watcher, badges, _ := newTestWatcher(t)

	event := completionEvent(`{"progress_id": 7, "user_id": 1, "badge_id": 3}`)
	watcher.handleNotification(context.Background(), event)
	watcher.handleNotification(context.Background(), event)

	assert.Equal(t, []int64{7}, badges.handledIDs())
}

func TestHandleNotificationDistinctProgressRowsBothDispatch(t *testing.T) {
	watcher, badges, _ := newTestWatcher(t)

	watcher.handleNotification(context.Background(),
		completionEvent(`{"progress_id": 7, "user_id": 1, "badge_id": 3}`))
	watcher.handleNotification(context.Background(),
		completionEvent(`{"progress_id": 8, "user_id": 1, "badge_id": 4}`))

	assert.Equal(t, []int64{7, 8}, badges.handledIDs())
}

func TestHandleNotificationRejectsMalformedPayloads(t *testing.T) {
	watcher, badges, _ := newTestWatcher(t)

	watcher.handleNotification(context.Background(), completionEvent(`not json`))
	watcher.handleNotification(context.Background(), completionEvent(`{}`))
	watcher.handleNotification(context.Background(), completionEvent(`{"progress_id": 0}`))

	assert.Empty(t, badges.handledIDs())
}

func TestSweepClaimsUnnotifiedCompletions(t *testing.T) {
	watcher, badges, repo := newTestWatcher(t)

	done := repo.addBadge(&models.BadgeDefinition{Key: "done", Name: "Done"})
	now := time.Now().UTC()

	completed := &models.BadgeProgress{
		UserID: 1, BadgeID: done.ID,
		Status: models.BadgeStatusCompleted, Progress: 100, AchievedAt: &now,
	}
	require.NoError(t, repo.CreateProgress(context.Background(), completed))

	open := &models.BadgeProgress{
		UserID: 2, BadgeID: done.ID,
		Status: models.BadgeStatusVisible, Progress: 40,
	}
	require.NoError(t, repo.CreateProgress(context.Background(), open))

	watcher.sweep(context.Background())

	assert.Equal(t, []int64{completed.ID}, badges.handledIDs())
}

func TestSweepWithNothingOwingIsQuiet(t *testing.T) {
	watcher, badges, _ := newTestWatcher(t)

	watcher.sweep(context.Background())

	assert.Empty(t, badges.handledIDs())
}

func TestRunSweepsOnTicker(t *testing.T) {
	badges := &fakeBadgeService{}
	repo := newFakeBadgeRepo()
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	cfg := config.BadgeConfig{
		DedupeTTL:         time.Minute,
		WatcherMinBackoff: time.Millisecond,
		WatcherMaxBackoff: 10 * time.Millisecond,
		SweepInterval:     5 * time.Millisecond,
	}
	watcher := NewCompletionWatcher(newFakeChangeFeed(), badges, repo, c, cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-watcher.Done()
	})

	// A completion that lands without any NOTIFY, after the startup sweep
	// already ran, is still picked up by the periodic sweep.
	silent := repo.addBadge(&models.BadgeDefinition{Key: "silent", Name: "Silent"})
	now := time.Now().UTC()
	require.NoError(t, repo.CreateProgress(context.Background(), &models.BadgeProgress{
		UserID: 1, BadgeID: silent.ID,
		Status: models.BadgeStatusCompleted, Progress: 100, AchievedAt: &now,
	}))

	require.Eventually(t, func() bool {
		return len(badges.handledIDs()) > 0
	}, time.Second, 5*time.Millisecond)
}
