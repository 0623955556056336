// file: internal/services/badge_progress_service_test.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"platewise/internal/cache"
	"platewise/internal/config"
	"platewise/internal/events"
	"platewise/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ===============================
// FAKES
// ===============================

type fakeBadgeRepo struct {
	mu       sync.Mutex
	badges   map[int64]*models.BadgeDefinition
	progress map[int64]*models.BadgeProgress
	nextID   int64

	// updates snapshots every record handed to UpdateProgress, so tests
	// can assert on exactly what a single write carried.
	updates []models.BadgeProgress
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{
		badges:   make(map[int64]*models.BadgeDefinition),
		progress: make(map[int64]*models.BadgeProgress),
		nextID:   1,
	}
}

func (r *fakeBadgeRepo) addBadge(badge *models.BadgeDefinition) *models.BadgeDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if badge.ID == 0 {
		badge.ID = r.nextID
		r.nextID++
	}
	r.badges[badge.ID] = badge
	return badge
}

func (r *fakeBadgeRepo) GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	badge, ok := r.badges[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return badge, nil
}

func (r *fakeBadgeRepo) GetBadgeByKey(ctx context.Context, key string) (*models.BadgeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, badge := range r.badges {
		if badge.Key == key {
			return badge, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeBadgeRepo) ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	badges := make([]*models.BadgeDefinition, 0, len(r.badges))
	for _, badge := range r.badges {
		badges = append(badges, badge)
	}
	return badges, nil
}

func (r *fakeBadgeRepo) CreateProgress(ctx context.Context, progress *models.BadgeProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.progress {
		if existing.UserID == progress.UserID && existing.BadgeID == progress.BadgeID {
			return &pq.Error{Code: "23505"}
		}
	}
	progress.ID = r.nextID
	r.nextID++
	stored := *progress
	r.progress[progress.ID] = &stored
	return nil
}

func (r *fakeBadgeRepo) GetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.progress {
		if p.UserID == userID && p.BadgeID == badgeID {
			clone := *p
			clone.Badge = r.badges[p.BadgeID]
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeBadgeRepo) GetProgressByID(ctx context.Context, id int64) (*models.BadgeProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.progress[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	clone.Badge = r.badges[p.BadgeID]
	return &clone, nil
}

func (r *fakeBadgeRepo) UpdateProgress(ctx context.Context, progress *models.BadgeProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.progress[progress.ID]; !ok {
		return sql.ErrNoRows
	}
	r.updates = append(r.updates, *progress)
	clone := *progress
	r.progress[progress.ID] = &clone
	return nil
}

func (r *fakeBadgeRepo) ClaimNotification(ctx context.Context, progressID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.progress[progressID]
	if !ok || !p.IsCompleted() || p.NotifiedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	p.NotifiedAt = &now
	return true, nil
}

func (r *fakeBadgeRepo) ListUnclaimedCompletions(ctx context.Context, limit int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, p := range r.progress {
		if p.IsCompleted() && p.NotifiedAt == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeBadgeRepo) ListProgress(ctx context.Context, userID int64, completed bool, sort string, order string) ([]*models.BadgeProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []*models.BadgeProgress
	for _, p := range r.progress {
		if p.UserID != userID || p.IsCompleted() != completed {
			continue
		}
		clone := *p
		clone.Badge = r.badges[p.BadgeID]
		records = append(records, &clone)
	}
	return records, nil
}

func (r *fakeBadgeRepo) GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.BadgeStats{PerCategory: make(map[models.BadgeCategory]models.CategoryProgress)}
	for _, p := range r.progress {
		if p.UserID != userID {
			continue
		}
		stats.TotalBadges++
		if p.IsCompleted() {
			stats.CompletedBadges++
		}
	}
	return stats, nil
}

type fakeActivityRepo struct {
	mu       sync.Mutex
	activity map[int64][]*models.CompletedActivity
	sessions map[int64]*models.CompletedActivity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{
		activity: make(map[int64][]*models.CompletedActivity),
		sessions: make(map[int64]*models.CompletedActivity),
	}
}

func (r *fakeActivityRepo) add(userID int64, a *models.CompletedActivity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity[userID] = append(r.activity[userID], a)
}

// addSession registers one completed activity under a session ID so the
// single-session read model can find it.
func (r *fakeActivityRepo) addSession(userID, sessionID int64, a *models.CompletedActivity) {
	r.add(userID, a)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = a
}

func (r *fakeActivityRepo) GetBySession(ctx context.Context, userID, sessionID int64) (*models.CompletedActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.sessions[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (r *fakeActivityRepo) ListCompleted(ctx context.Context, userID int64) ([]*models.CompletedActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activity[userID], nil
}

func (r *fakeActivityRepo) CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, a := range r.activity[userID] {
		if a.CompletedAt.After(since) {
			count++
		}
	}
	return count, nil
}

type emittedNotification struct {
	UserID  int64
	BadgeID int64
}

type fakeNotifier struct {
	mu      sync.Mutex
	emitted []emittedNotification
	emitErr error
}

func (n *fakeNotifier) failWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emitErr = err
}

func (n *fakeNotifier) EmitBadgeEarned(ctx context.Context, userID, badgeID int64) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.emitErr != nil {
		return nil, n.emitErr
	}
	n.emitted = append(n.emitted, emittedNotification{UserID: userID, BadgeID: badgeID})
	return &models.Notification{UserID: userID, Type: models.NotificationTypeBadgeEarned}, nil
}

func (n *fakeNotifier) ListNotifications(ctx context.Context, req *ListNotificationsRequest) (*NotificationListResponse, error) {
	return &NotificationListResponse{}, nil
}

func (n *fakeNotifier) MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

func (n *fakeNotifier) DeleteNotifications(ctx context.Context, userID int64, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emitted)
}

type fakeEventBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *fakeEventBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return nil
}

func (b *fakeEventBus) PublishAsync(ctx context.Context, event events.Event) error {
	return b.Publish(ctx, event)
}

func (b *fakeEventBus) PublishBatch(ctx context.Context, evts []events.Event) error {
	for _, e := range evts {
		if err := b.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeEventBus) Subscribe(eventType string, handler events.EventHandler) error   { return nil }
func (b *fakeEventBus) SubscribePattern(p string, handler events.EventHandler) error    { return nil }
func (b *fakeEventBus) Unsubscribe(eventType string, handler events.EventHandler) error { return nil }
func (b *fakeEventBus) Start(ctx context.Context) error                                 { return nil }
func (b *fakeEventBus) Stop(ctx context.Context) error                                  { return nil }
func (b *fakeEventBus) Health() error                                                   { return nil }
func (b *fakeEventBus) Stats() *events.EventBusStats                                    { return &events.EventBusStats{} }

func (b *fakeEventBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.published))
	for _, e := range b.published {
		types = append(types, e.GetEventType())
	}
	return types
}

// ===============================
// FIXTURE
// ===============================

type badgeFixture struct {
	service  BadgeService
	badges   *fakeBadgeRepo
	activity *fakeActivityRepo
	notifier *fakeNotifier
	bus      *fakeEventBus
}

func newBadgeFixture(t *testing.T) *badgeFixture {
	t.Helper()

	badges := newFakeBadgeRepo()
	activity := newFakeActivityRepo()
	notifier := &fakeNotifier{}
	bus := &fakeEventBus{}

	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	cfg := config.BadgeConfig{
		DedupeTTL:     time.Minute,
		StatsCacheTTL: time.Minute,
	}

	svc := NewBadgeService(badges, activity, notifier, c, bus, cfg, zap.NewNop())
	return &badgeFixture{
		service:  svc,
		badges:   badges,
		activity: activity,
		notifier: notifier,
		bus:      bus,
	}
}

func seedBadge(f *badgeFixture, key string, requirements ...string) *models.BadgeDefinition {
	return f.badges.addBadge(&models.BadgeDefinition{
		Key:          key,
		Name:         key,
		Category:     models.BadgeCategoryBudget,
		Rarity:       models.BadgeRarityCommon,
		Requirements: models.StringArray(requirements),
		XPReward:     50,
	})
}

// ===============================
// INITIALIZATION
// ===============================

func TestInitializeProgressSeedsMilestonesFromRequirements(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "budget-master",
		"Cook 3 budget meals",
		"Keep average cost per serving under €3.50",
		"Plan ahead",
	)

	created, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	progress, err := f.badges.GetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	// Onboarding reveals the catalog, so the record starts VISIBLE.
	assert.Equal(t, models.BadgeStatusVisible, progress.Status)
	assert.Equal(t, 0, progress.Progress)

	require.Len(t, progress.Milestones, 3)
	assert.Equal(t, 3, progress.Milestones[0].RequiredCount)
	// The first integer literal wins: "under €3.50" parses as 3.
	assert.Equal(t, 3, progress.Milestones[1].RequiredCount)
	// No digits at all defaults to 1.
	assert.Equal(t, 1, progress.Milestones[2].RequiredCount)
}

func TestInitializeProgressIsRepeatable(t *testing.T) {
	f := newBadgeFixture(t)
	seedBadge(f, "one", "Cook 5 meals")
	seedBadge(f, "two", "Cook 10 meals")

	created, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestInitializeProgressInvalidUser(t *testing.T) {
	f := newBadgeFixture(t)

	_, err := f.service.InitializeProgress(context.Background(), 0)
	assert.True(t, IsValidationError(err))
}

// ===============================
// MILESTONE INCREMENTS
// ===============================

func TestUpdateMilestoneProgressWithoutRecordIsNoOp(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "quiet", "Cook 5 meals")

	progress, err := f.service.UpdateMilestoneProgress(context.Background(), 42, badge.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, progress)
	assert.Empty(t, f.badges.updates)
}

func TestUpdateMilestoneProgressAdvances(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "steady", "Cook 4 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	progress, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, progress)

	assert.Equal(t, models.BadgeStatusVisible, progress.Status)
	assert.Equal(t, 25, progress.Progress)
	assert.Equal(t, 1, progress.Milestones[0].CurrentCount)
	assert.False(t, progress.Milestones[0].Completed)
	assert.Nil(t, progress.AchievedAt)
}

func TestUpdateMilestoneProgressClampsAtRequiredCount(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "capped", "Cook 2 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	progress, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.Milestones[0].CurrentCount)
	assert.True(t, progress.Milestones[0].Completed)
	assert.Equal(t, 100, progress.Progress)
}

func TestCompletionTransitionIsCarriedByOneWrite(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "atomic", "Cook 1 meal")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	_, err = f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)

	// A single persisted write carries the full transition: status,
	// progress and the achievement timestamp together.
	require.Len(t, f.badges.updates, 1)
	written := f.badges.updates[0]
	assert.Equal(t, models.BadgeStatusCompleted, written.Status)
	assert.Equal(t, 100, written.Progress)
	require.NotNil(t, written.AchievedAt)

	assert.Equal(t, 1, f.notifier.count())
	assert.Contains(t, f.bus.eventTypes(), "badge.completed")
}

func TestCompletedBadgeIgnoresFurtherIncrements(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "done", "Cook 1 meal")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	first, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, first.AchievedAt)
	achievedAt := *first.AchievedAt

	second, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, models.BadgeStatusCompleted, second.Status)
	require.NotNil(t, second.AchievedAt)
	assert.Equal(t, achievedAt, *second.AchievedAt)
	// No second write and no second notification.
	assert.Len(t, f.badges.updates, 1)
	assert.Equal(t, 1, f.notifier.count())
}

func TestLockedRecordAccumulatesProgressWithoutUnlocking(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "gated", "Cook 7 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	locked, err := f.service.ResetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	require.Equal(t, models.BadgeStatusLocked, locked.Status)

	// Progress alone never unlocks: LOCKED to VISIBLE takes an
	// administrative or onboarding action.
	progress, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeStatusLocked, progress.Status)
	assert.Equal(t, 1, progress.Milestones[0].CurrentCount)
	assert.Greater(t, progress.Progress, 0)
}

// ===============================
// QUALIFYING ACTIVITY
// ===============================

func budgetCriterion(target float64, weight float64, maxCost *float64) models.BadgeCriterion {
	return models.BadgeCriterion{
		Name:              "cooks",
		Type:              models.CriterionCount,
		Target:            target,
		Weight:            weight,
		MaxCostPerServing: maxCost,
	}
}

func TestApplyQualifyingActivityAdvancesCountBadge(t *testing.T) {
	f := newBadgeFixture(t)
	badge := f.badges.addBadge(&models.BadgeDefinition{
		Key:          "five-meals",
		Name:         "Five Meals",
		Category:     models.BadgeCategoryCooking,
		Rarity:       models.BadgeRarityCommon,
		Requirements: models.StringArray{"Cook 5 meals"},
		Criteria:     models.CriteriaList{budgetCriterion(5, 1, nil)},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := int64(1); i <= 5; i++ {
		f.activity.addSession(1, i, &models.CompletedActivity{
			RecipeID: i, CompletedAt: now, CostPerServing: 3, Servings: 2, TimeMinutes: 20,
		})
		require.NoError(t, f.service.ApplyQualifyingActivity(context.Background(), 1, i))
	}

	progress, err := f.badges.GetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeStatusCompleted, progress.Status)
	assert.Equal(t, 100, progress.Progress)
	require.Len(t, progress.Milestones, 1)
	assert.Equal(t, 5, progress.Milestones[0].CurrentCount)
	assert.True(t, progress.Milestones[0].Completed)
	assert.Equal(t, 1, f.notifier.count())
}

func TestApplyQualifyingActivityOnlyAdvancesMatchingMilestones(t *testing.T) {
	f := newBadgeFixture(t)
	maxCost := 3.5
	badge := f.badges.addBadge(&models.BadgeDefinition{
		Key:      "mixed",
		Name:     "Mixed",
		Category: models.BadgeCategoryBudget,
		Rarity:   models.BadgeRarityRare,
		Requirements: models.StringArray{
			"Cook 3 budget meals",
			"Cook 3 meals",
		},
		Criteria: models.CriteriaList{
			budgetCriterion(3, 0.5, &maxCost),
			budgetCriterion(3, 0.5, nil),
		},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	// An expensive session satisfies only the unfiltered criterion.
	f.activity.addSession(1, 7, &models.CompletedActivity{
		RecipeID: 1, CompletedAt: time.Now().UTC(), CostPerServing: 10, Servings: 2, TimeMinutes: 20,
	})
	require.NoError(t, f.service.ApplyQualifyingActivity(context.Background(), 1, 7))

	progress, err := f.badges.GetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	require.Len(t, progress.Milestones, 2)
	assert.Equal(t, 0, progress.Milestones[0].CurrentCount)
	assert.Equal(t, 1, progress.Milestones[1].CurrentCount)
}

func TestApplyQualifyingActivityLeavesHistoryScoredBadgesAlone(t *testing.T) {
	f := newBadgeFixture(t)
	f.badges.addBadge(&models.BadgeDefinition{
		Key:          "streaker",
		Name:         "Streaker",
		Category:     models.BadgeCategoryStreak,
		Rarity:       models.BadgeRarityEpic,
		Requirements: models.StringArray{"Cook for 4 weeks in a row"},
		Criteria: models.CriteriaList{
			{Name: "weeks", Type: models.CriterionWeekStreak, Target: 4, Weight: 1},
		},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	f.activity.addSession(1, 3, &models.CompletedActivity{
		RecipeID: 1, CompletedAt: time.Now().UTC(), CostPerServing: 3, Servings: 2, TimeMinutes: 20,
	})
	require.NoError(t, f.service.ApplyQualifyingActivity(context.Background(), 1, 3))

	// Streaks need the full history, so the increment path leaves the
	// record for the recalculation that follows the same event.
	assert.Empty(t, f.badges.updates)
}

func TestApplyQualifyingActivityUnknownSessionIsNoOp(t *testing.T) {
	f := newBadgeFixture(t)
	seedBadge(f, "quiet", "Cook 5 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, f.service.ApplyQualifyingActivity(context.Background(), 1, 404))
	assert.Empty(t, f.badges.updates)
}

// ===============================
// ADMINISTRATIVE OVERRIDE
// ===============================

func TestAdminCompletionStampsAchievementAndNotifiesOnce(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "granted", "Cook 20 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	status := models.BadgeStatusCompleted
	progress, err := f.service.UpdateProgress(context.Background(), &UpdateBadgeProgressRequest{
		UserID:  1,
		BadgeID: badge.ID,
		Status:  &status,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BadgeStatusCompleted, progress.Status)
	assert.Equal(t, 100, progress.Progress)
	require.NotNil(t, progress.AchievedAt)
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, int64(1), f.notifier.emitted[0].UserID)
	assert.Equal(t, badge.ID, f.notifier.emitted[0].BadgeID)
}

func TestAdminUpdateRejectsUnknownStatus(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "strict", "Cook 5 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	bogus := models.BadgeStatus("ARCHIVED")
	_, err = f.service.UpdateProgress(context.Background(), &UpdateBadgeProgressRequest{
		UserID:  1,
		BadgeID: badge.ID,
		Status:  &bogus,
	})
	assert.True(t, IsValidationError(err))
}

func TestAdminUpdateClampsProgress(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "bounded", "Cook 5 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	p := 60
	progress, err := f.service.UpdateProgress(context.Background(), &UpdateBadgeProgressRequest{
		UserID:   1,
		BadgeID:  badge.ID,
		Progress: &p,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, progress.Progress)
	assert.Equal(t, models.BadgeStatusVisible, progress.Status)
	assert.Nil(t, progress.AchievedAt)
	assert.Equal(t, 0, f.notifier.count())
}

// ===============================
// RESET
// ===============================

func TestResetProgressRestoresBaseline(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "undone", "Cook 1 meal")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	completed, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	require.True(t, completed.IsCompleted())
	require.Equal(t, 1, f.notifier.count())

	// The catalog requirement changed since the badge was earned; the
	// reset reseeds from what the catalog says now.
	badge.Requirements = models.StringArray{"Cook 7 meals"}

	reset, err := f.service.ResetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)

	assert.Equal(t, models.BadgeStatusLocked, reset.Status)
	assert.Equal(t, 0, reset.Progress)
	assert.Nil(t, reset.AchievedAt)
	assert.Nil(t, reset.NotifiedAt)
	require.Len(t, reset.Milestones, 1)
	assert.Equal(t, 7, reset.Milestones[0].RequiredCount)
	assert.Equal(t, 0, reset.Milestones[0].CurrentCount)
}

func TestResetThenReearnNotifiesAgain(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "comeback", "Cook 1 meal")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	_, err = f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, f.notifier.count())

	_, err = f.service.ResetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)

	reearned, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	assert.True(t, reearned.IsCompleted())
	assert.Equal(t, 2, f.notifier.count())
}

// ===============================
// RECALCULATION
// ===============================

func TestRecalculateAllCompletesBudgetBadge(t *testing.T) {
	f := newBadgeFixture(t)
	maxCost := 3.5
	badge := f.badges.addBadge(&models.BadgeDefinition{
		Key:      "budget-master",
		Name:     "Budget Master",
		Category: models.BadgeCategoryBudget,
		Rarity:   models.BadgeRarityRare,
		Criteria: models.CriteriaList{
			{Name: "budget-cooks", Type: models.CriterionCount, Target: 3, Weight: 0.7, MaxCostPerServing: &maxCost},
			{Name: "frugal-average", Type: models.CriterionAvgCostBelow, Target: 3.5, Weight: 0.3},
		},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		f.activity.add(1, &models.CompletedActivity{
			RecipeID:       int64(i + 1),
			CompletedAt:    now.Add(time.Duration(i) * time.Hour),
			CostPerServing: 2.5,
			Servings:       4,
			TimeMinutes:    30,
		})
	}

	require.NoError(t, f.service.RecalculateAll(context.Background(), 1))

	progress, err := f.badges.GetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeStatusCompleted, progress.Status)
	assert.Equal(t, 100, progress.Progress)
	require.NotNil(t, progress.AchievedAt)
	assert.Equal(t, 1, f.notifier.count())

	// A second sweep over the same history changes nothing.
	require.NoError(t, f.service.RecalculateAll(context.Background(), 1))
	assert.Equal(t, 1, f.notifier.count())
	assert.Len(t, f.badges.updates, 1)
}

func TestRecalculateAllSyncsMilestoneCounts(t *testing.T) {
	f := newBadgeFixture(t)
	maxCost := 3.5
	counted := f.badges.addBadge(&models.BadgeDefinition{
		Key:          "thrifty-three",
		Name:         "Thrifty Three",
		Category:     models.BadgeCategoryBudget,
		Rarity:       models.BadgeRarityCommon,
		Requirements: models.StringArray{"Cook 3 budget meals"},
		Criteria:     models.CriteriaList{budgetCriterion(3, 1, &maxCost)},
	})
	averaged := f.badges.addBadge(&models.BadgeDefinition{
		Key:          "frugal-average",
		Name:         "Frugal Average",
		Category:     models.BadgeCategoryBudget,
		Rarity:       models.BadgeRarityRare,
		Requirements: models.StringArray{"Keep average cost per serving under €3.50"},
		Criteria: models.CriteriaList{
			{Name: "average", Type: models.CriterionAvgCostBelow, Target: 3.5, Weight: 1},
		},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		f.activity.add(1, &models.CompletedActivity{
			RecipeID:       int64(i + 1),
			CompletedAt:    now.Add(time.Duration(i) * time.Hour),
			CostPerServing: 2.5,
			Servings:       4,
			TimeMinutes:    30,
		})
	}

	require.NoError(t, f.service.RecalculateAll(context.Background(), 1))

	// A completed record carries milestone counters that agree with it.
	progress, err := f.badges.GetProgress(context.Background(), 1, counted.ID)
	require.NoError(t, err)
	require.True(t, progress.IsCompleted())
	require.Len(t, progress.Milestones, 1)
	assert.Equal(t, 3, progress.Milestones[0].CurrentCount)
	assert.True(t, progress.Milestones[0].Completed)

	// Threshold criteria score complete without a literal count; the
	// counter snaps to its parsed goal instead of staying at zero.
	progress, err = f.badges.GetProgress(context.Background(), 1, averaged.ID)
	require.NoError(t, err)
	require.True(t, progress.IsCompleted())
	require.Len(t, progress.Milestones, 1)
	assert.Equal(t, progress.Milestones[0].RequiredCount, progress.Milestones[0].CurrentCount)
	assert.True(t, progress.Milestones[0].Completed)
}

func TestRecalculateAllNeverLowersProgress(t *testing.T) {
	f := newBadgeFixture(t)
	badge := f.badges.addBadge(&models.BadgeDefinition{
		Key:      "marathon",
		Name:     "Marathon",
		Category: models.BadgeCategoryCooking,
		Rarity:   models.BadgeRarityEpic,
		Criteria: models.CriteriaList{
			{Name: "cooks", Type: models.CriterionCount, Target: 100, Weight: 1},
		},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	p := 60
	_, err = f.service.UpdateProgress(context.Background(), &UpdateBadgeProgressRequest{
		UserID: 1, BadgeID: badge.ID, Progress: &p,
	})
	require.NoError(t, err)

	// One completed session scores 1 out of 100.
	f.activity.add(1, &models.CompletedActivity{
		RecipeID: 1, CompletedAt: time.Now().UTC(), CostPerServing: 3, Servings: 2, TimeMinutes: 20,
	})

	require.NoError(t, f.service.RecalculateAll(context.Background(), 1))

	progress, err := f.badges.GetProgress(context.Background(), 1, badge.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, progress.Progress)
}

func TestRecalculateAllTracksTwoBadgesIndependently(t *testing.T) {
	f := newBadgeFixture(t)
	quick := f.badges.addBadge(&models.BadgeDefinition{
		Key:      "quick",
		Name:     "Quick",
		Category: models.BadgeCategoryCooking,
		Rarity:   models.BadgeRarityCommon,
		Criteria: models.CriteriaList{
			{Name: "any", Type: models.CriterionCount, Target: 2, Weight: 1},
		},
	})
	long := f.badges.addBadge(&models.BadgeDefinition{
		Key:      "long",
		Name:     "Long",
		Category: models.BadgeCategoryCooking,
		Rarity:   models.BadgeRarityLegendary,
		Criteria: models.CriteriaList{
			{Name: "any", Type: models.CriterionCount, Target: 8, Weight: 1},
		},
	})
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	now := time.Now().UTC()
	f.activity.add(1, &models.CompletedActivity{RecipeID: 1, CompletedAt: now, CostPerServing: 3, Servings: 2, TimeMinutes: 20})
	f.activity.add(1, &models.CompletedActivity{RecipeID: 2, CompletedAt: now, CostPerServing: 3, Servings: 2, TimeMinutes: 20})

	require.NoError(t, f.service.RecalculateAll(context.Background(), 1))

	quickProgress, err := f.badges.GetProgress(context.Background(), 1, quick.ID)
	require.NoError(t, err)
	assert.True(t, quickProgress.IsCompleted())

	longProgress, err := f.badges.GetProgress(context.Background(), 1, long.ID)
	require.NoError(t, err)
	assert.False(t, longProgress.IsCompleted())
	assert.Equal(t, 25, longProgress.Progress)

	assert.Equal(t, 1, f.notifier.count())
}

// ===============================
// COMPLETION HANDLING
// ===============================

func TestHandleCompletionClaimsExactlyOnce(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "claimed", "Cook 1 meal")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	completed, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, f.notifier.count())

	// The watcher racing the direct path lands on an already claimed row.
	require.NoError(t, f.service.HandleCompletion(context.Background(), completed.ID))
	require.NoError(t, f.service.HandleCompletion(context.Background(), completed.ID))
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandleCompletionEmissionFailureIsRetryable(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "flaky", "Cook 1 meal")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	f.notifier.failWith(errors.New("notification store down"))
	completed, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)
	require.True(t, completed.IsCompleted())

	// The notification row is written before notified_at is claimed, so a
	// failed emission leaves the row owing and the sweep will find it.
	stored, err := f.badges.GetProgressByID(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.NotifiedAt)

	unclaimed, err := f.badges.ListUnclaimedCompletions(context.Background(), 10)
	require.NoError(t, err)
	assert.Contains(t, unclaimed, completed.ID)

	f.notifier.failWith(nil)
	require.NoError(t, f.service.HandleCompletion(context.Background(), completed.ID))
	assert.Equal(t, 1, f.notifier.count())

	stored, err = f.badges.GetProgressByID(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.NotifiedAt)
}

func TestHandleCompletionIgnoresIncompleteAndMissingRows(t *testing.T) {
	f := newBadgeFixture(t)
	badge := seedBadge(f, "early", "Cook 5 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	open, err := f.service.UpdateMilestoneProgress(context.Background(), 1, badge.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.service.HandleCompletion(context.Background(), open.ID))
	require.NoError(t, f.service.HandleCompletion(context.Background(), 99999))
	assert.Equal(t, 0, f.notifier.count())
}

// ===============================
// VIEWS
// ===============================

func TestConqueredAndUnconqueredGrouping(t *testing.T) {
	f := newBadgeFixture(t)
	earned := seedBadge(f, "earned", "Cook 1 meal")
	seedBadge(f, "pending", "Cook 9 meals")
	_, err := f.service.InitializeProgress(context.Background(), 1)
	require.NoError(t, err)

	_, err = f.service.UpdateMilestoneProgress(context.Background(), 1, earned.ID, 1)
	require.NoError(t, err)

	conquered, err := f.service.GetConquered(context.Background(), &ListBadgeProgressRequest{UserID: 1})
	require.NoError(t, err)
	require.Len(t, conquered, 1)
	assert.Equal(t, models.BadgeCategoryBudget, conquered[0].Category)
	require.Len(t, conquered[0].Badges, 1)
	assert.Equal(t, "earned", conquered[0].Badges[0].Badge.Key)

	unconquered, err := f.service.GetUnconquered(context.Background(), &ListBadgeProgressRequest{UserID: 1})
	require.NoError(t, err)
	require.Len(t, unconquered, 1)
	require.Len(t, unconquered[0].Badges, 1)
	assert.Equal(t, "pending", unconquered[0].Badges[0].Badge.Key)
}
