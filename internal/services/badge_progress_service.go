// file: internal/services/badge_progress_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"platewise/internal/cache"
	"platewise/internal/config"
	"platewise/internal/events"
	"platewise/internal/models"
	"platewise/internal/repositories"
	"platewise/internal/validation"

	"go.uber.org/zap"
)

// categoryOrder fixes the bucket order of the grouped badge listings
var categoryOrder = []models.BadgeCategory{
	models.BadgeCategoryCooking,
	models.BadgeCategoryPlanning,
	models.BadgeCategoryBudget,
	models.BadgeCategoryVariety,
	models.BadgeCategoryStreak,
}

// badgeService implements BadgeService
type badgeService struct {
	badgeRepo    repositories.BadgeRepository
	activityRepo repositories.ActivityRepository
	notifier     NotificationService
	calculator   *BadgeCalculator
	cache        cache.Cache
	events       events.EventBus
	cfg          config.BadgeConfig
	logger       *zap.Logger
}

// NewBadgeService creates a new badge achievement service
func NewBadgeService(
	badgeRepo repositories.BadgeRepository,
	activityRepo repositories.ActivityRepository,
	notifier NotificationService,
	c cache.Cache,
	eventBus events.EventBus,
	cfg config.BadgeConfig,
	logger *zap.Logger,
) BadgeService {
	return &badgeService{
		badgeRepo:    badgeRepo,
		activityRepo: activityRepo,
		notifier:     notifier,
		calculator:   NewBadgeCalculator(),
		cache:        c,
		events:       eventBus,
		cfg:          cfg,
		logger:       logger,
	}
}

// ===============================
// CATALOG
// ===============================

// GetBadgeByID retrieves a catalog badge
func (s *badgeService) GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error) {
	if id <= 0 {
		return nil, NewValidationError("invalid badge ID", nil)
	}

	badge, err := s.badgeRepo.GetBadgeByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("badge", id)
		}
		s.logger.Error("Failed to get badge", zap.Error(err), zap.Int64("badge_id", id))
		return nil, NewInternalError("failed to get badge")
	}
	return badge, nil
}

// ListActiveBadges returns every earnable catalog badge
func (s *badgeService) ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error) {
	badges, err := s.badgeRepo.ListActiveBadges(ctx)
	if err != nil {
		s.logger.Error("Failed to list active badges", zap.Error(err))
		return nil, NewInternalError("failed to list badges")
	}
	return badges, nil
}

// ===============================
// PROGRESS LIFECYCLE
// ===============================

// InitializeProgress creates a progress record for every active catalog
// badge the user does not track yet. Existing records are left untouched,
// so the call is safe to repeat. It returns the number of records created.
func (s *badgeService) InitializeProgress(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, NewValidationError("invalid user ID", nil)
	}

	badges, err := s.badgeRepo.ListActiveBadges(ctx)
	if err != nil {
		s.logger.Error("Failed to list badges for init", zap.Error(err), zap.Int64("user_id", userID))
		return 0, NewInternalError("failed to initialize badge progress")
	}

	created := 0
	for _, badge := range badges {
		if _, err := s.badgeRepo.GetProgress(ctx, userID, badge.ID); err == nil {
			continue
		} else if !repositories.IsNotFound(err) {
			s.logger.Error("Failed to check existing progress",
				zap.Error(err), zap.Int64("user_id", userID), zap.Int64("badge_id", badge.ID))
			return created, NewInternalError("failed to initialize badge progress")
		}

		// Onboarding is the action that reveals the catalog, so the
		// records it creates start VISIBLE rather than LOCKED.
		progress := &models.BadgeProgress{
			UserID:     userID,
			BadgeID:    badge.ID,
			Status:     models.BadgeStatusVisible,
			Progress:   0,
			Milestones: models.SeedMilestones(badge.Requirements),
		}
		if err := s.badgeRepo.CreateProgress(ctx, progress); err != nil {
			// Unique (user_id, badge_id): a concurrent init already won.
			if repositories.IsUniqueViolation(err) {
				continue
			}
			s.logger.Error("Failed to create progress record",
				zap.Error(err), zap.Int64("user_id", userID), zap.Int64("badge_id", badge.ID))
			return created, NewInternalError("failed to initialize badge progress")
		}
		created++
	}

	s.invalidateStats(ctx, userID)
	s.logger.Info("Badge progress initialized",
		zap.Int64("user_id", userID),
		zap.Int("created", created),
		zap.Int("catalog_size", len(badges)),
	)
	return created, nil
}

// UpdateMilestoneProgress advances every open milestone of one badge by
// the given increment and recomputes the summary progress. A user who
// never initialized progress for the badge is a quiet no-op; the
// recalculation sweep will pick them up later.
func (s *badgeService) UpdateMilestoneProgress(ctx context.Context, userID, badgeID int64, increment int) (*models.BadgeProgress, error) {
	return s.applyMilestoneIncrement(ctx, userID, badgeID, increment, nil)
}

// ApplyQualifyingActivity is the incremental updater path behind a
// completed cooking session: badges the session qualifies for advance
// immediately, one increment per badge. Only purely count-scored badges
// take the increment; streaks, serving variety and running averages need
// the full history and are left to the recalculation that follows. A
// per-badge failure is logged and skipped, never surfaced to the session.
func (s *badgeService) ApplyQualifyingActivity(ctx context.Context, userID, sessionID int64) error {
	if userID <= 0 || sessionID <= 0 {
		return NewValidationError("invalid user or session ID", nil)
	}

	activity, err := s.activityRepo.GetBySession(ctx, userID, sessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil
		}
		s.logger.Error("Failed to load completed session for badge update",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("session_id", sessionID))
		return NewInternalError("failed to apply badge progress")
	}

	badges, err := s.badgeRepo.ListActiveBadges(ctx)
	if err != nil {
		s.logger.Error("Failed to list badges for activity update", zap.Error(err))
		return NewInternalError("failed to apply badge progress")
	}

	for _, badge := range badges {
		if !qualifiesForIncrement(badge, activity) {
			continue
		}
		if _, err := s.applyMilestoneIncrement(ctx, userID, badge.ID, 1, activity); err != nil {
			s.logger.Warn("Badge increment failed, recalculation will recover",
				zap.Error(err), zap.Int64("user_id", userID), zap.Int64("badge_id", badge.ID))
		}
	}
	return nil
}

// applyMilestoneIncrement is the single-badge transactional unit: load,
// seed milestones when empty, apply the increment, recompute the summary
// and persist the whole record in one write. With an activity given,
// only milestones whose paired criterion the activity satisfies advance;
// without one (the manual path) every open milestone advances.
func (s *badgeService) applyMilestoneIncrement(ctx context.Context, userID, badgeID int64, increment int, activity *models.CompletedActivity) (*models.BadgeProgress, error) {
	if userID <= 0 || badgeID <= 0 {
		return nil, NewValidationError("invalid user or badge ID", nil)
	}
	if increment <= 0 {
		return nil, NewValidationError("increment must be positive", nil)
	}

	progress, err := s.badgeRepo.GetProgress(ctx, userID, badgeID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil
		}
		s.logger.Error("Failed to load badge progress",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("badge_id", badgeID))
		return nil, NewInternalError("failed to load badge progress")
	}

	if progress.IsCompleted() {
		return progress, nil
	}

	badge := progress.Badge
	if badge == nil {
		badge, err = s.badgeRepo.GetBadgeByID(ctx, badgeID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return nil, EntityNotFoundError("badge", badgeID)
			}
			return nil, NewInternalError("failed to load badge catalog entry")
		}
	}

	// Milestones missing from older records are seeded from the current
	// catalog requirements before the increment is applied. A badge whose
	// catalog entry defines no milestones is scored by recalculation only.
	if len(progress.Milestones) == 0 {
		progress.Milestones = models.SeedMilestones(badge.Requirements)
		if len(progress.Milestones) == 0 {
			return progress, nil
		}
	}

	paired := len(progress.Milestones) == len(badge.Criteria)
	for i := range progress.Milestones {
		m := &progress.Milestones[i]
		if m.Completed {
			continue
		}
		if activity != nil && paired && !badge.Criteria[i].Matches(activity) {
			continue
		}
		m.CurrentCount += increment
		if m.CurrentCount >= m.RequiredCount {
			m.CurrentCount = m.RequiredCount
			m.Completed = true
		}
	}

	progress.Progress = summarizeMilestones(progress.Milestones)
	completedNow := s.applyCompletionTransition(progress)

	if err := s.badgeRepo.UpdateProgress(ctx, progress); err != nil {
		s.logger.Error("Failed to persist badge progress",
			zap.Error(err), zap.Int64("progress_id", progress.ID))
		return nil, NewInternalError("failed to update badge progress")
	}

	s.afterProgressWrite(ctx, progress, completedNow)
	return progress, nil
}

// qualifiesForIncrement reports whether one completed session advances a
// badge on the incremental path: every weighted criterion is a plain
// count, and the session satisfies at least one of them.
func qualifiesForIncrement(badge *models.BadgeDefinition, activity *models.CompletedActivity) bool {
	if badge == nil || len(badge.Criteria) == 0 {
		return false
	}
	qualified := false
	for i := range badge.Criteria {
		criterion := &badge.Criteria[i]
		if criterion.Weight <= 0 {
			continue
		}
		if criterion.Type != models.CriterionCount {
			return false
		}
		if criterion.Matches(activity) {
			qualified = true
		}
	}
	return qualified
}

// UpdateProgress is the administrative override. A COMPLETED status set
// through this path funnels into the same transition and notification
// logic as an organic completion.
func (s *badgeService) UpdateProgress(ctx context.Context, req *UpdateBadgeProgressRequest) (*models.BadgeProgress, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid progress update request", err)
	}
	if req.Status != nil && !models.ValidateBadgeStatus(string(*req.Status)) {
		return nil, NewValidationError(fmt.Sprintf("invalid badge status %q", *req.Status), nil)
	}

	progress, err := s.badgeRepo.GetProgress(ctx, req.UserID, req.BadgeID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("badge progress", req.BadgeID)
		}
		return nil, NewInternalError("failed to load badge progress")
	}

	if req.Milestones != nil {
		progress.Milestones = req.Milestones
	}
	if req.Progress != nil {
		progress.Progress = clampProgress(*req.Progress)
	}
	if req.Status != nil {
		progress.Status = *req.Status
	}
	if progress.Status == models.BadgeStatusCompleted {
		progress.Progress = 100
	}
	completedNow := s.applyCompletionTransition(progress)

	if err := s.badgeRepo.UpdateProgress(ctx, progress); err != nil {
		s.logger.Error("Failed to persist admin progress update",
			zap.Error(err), zap.Int64("progress_id", progress.ID))
		return nil, NewInternalError("failed to update badge progress")
	}

	s.afterProgressWrite(ctx, progress, completedNow)
	return progress, nil
}

// ResetProgress returns a badge to its untracked baseline: LOCKED, zero
// progress, milestones re-seeded from the current catalog requirements,
// achievement and notification marks cleared.
func (s *badgeService) ResetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error) {
	if userID <= 0 || badgeID <= 0 {
		return nil, NewValidationError("invalid user or badge ID", nil)
	}

	progress, err := s.badgeRepo.GetProgress(ctx, userID, badgeID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, EntityNotFoundError("badge progress", badgeID)
		}
		return nil, NewInternalError("failed to load badge progress")
	}

	badge := progress.Badge
	if badge == nil {
		badge, err = s.badgeRepo.GetBadgeByID(ctx, badgeID)
		if err != nil && !repositories.IsNotFound(err) {
			return nil, NewInternalError("failed to load badge catalog entry")
		}
	}

	progress.Status = models.BadgeStatusLocked
	progress.Progress = 0
	progress.AchievedAt = nil
	progress.NotifiedAt = nil
	if badge != nil {
		progress.Milestones = models.SeedMilestones(badge.Requirements)
	} else {
		progress.Milestones = models.MilestoneList{}
	}

	if err := s.badgeRepo.UpdateProgress(ctx, progress); err != nil {
		s.logger.Error("Failed to reset badge progress",
			zap.Error(err), zap.Int64("progress_id", progress.ID))
		return nil, NewInternalError("failed to reset badge progress")
	}

	s.invalidateStats(ctx, userID)
	s.publish(ctx, events.NewBadgeProgressResetEvent(userID, badgeID, progress.ID))

	s.logger.Info("Badge progress reset",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
	)
	return progress, nil
}

// RecalculateAll rescores every active badge of a user against their full
// completed activity history, milestone counts included, so the stored
// record agrees with itself: a badge cannot read COMPLETED while its
// milestones still show zero. Badges without a progress record are
// skipped; completion transitions fire exactly as on the increment path.
func (s *badgeService) RecalculateAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewValidationError("invalid user ID", nil)
	}

	badges, err := s.badgeRepo.ListActiveBadges(ctx)
	if err != nil {
		s.logger.Error("Failed to list badges for recalculation", zap.Error(err))
		return NewInternalError("failed to recalculate badge progress")
	}

	activity, err := s.activityRepo.ListCompleted(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load completed activity",
			zap.Error(err), zap.Int64("user_id", userID))
		return NewInternalError("failed to recalculate badge progress")
	}

	for _, badge := range badges {
		progress, err := s.badgeRepo.GetProgress(ctx, userID, badge.ID)
		if err != nil {
			if repositories.IsNotFound(err) {
				continue
			}
			s.logger.Error("Failed to load progress during recalculation",
				zap.Error(err), zap.Int64("user_id", userID), zap.Int64("badge_id", badge.ID))
			continue
		}
		if progress.IsCompleted() {
			continue
		}

		calculated := s.calculator.Calculate(badge, activity)
		milestonesChanged := s.syncMilestones(progress, badge, activity)
		if calculated <= progress.Progress && !milestonesChanged {
			continue
		}

		if calculated > progress.Progress {
			progress.Progress = calculated
		}
		completedNow := s.applyCompletionTransition(progress)

		if err := s.badgeRepo.UpdateProgress(ctx, progress); err != nil {
			s.logger.Error("Failed to persist recalculated progress",
				zap.Error(err), zap.Int64("progress_id", progress.ID))
			continue
		}

		s.afterProgressWrite(ctx, progress, completedNow)
	}

	return nil
}

// syncMilestones rewrites a record's milestone counters from the scanned
// activity and reports whether anything changed. Milestones pair with
// catalog criteria by position; a record whose milestone shape no longer
// matches the catalog is left alone for a reset to repair.
func (s *badgeService) syncMilestones(progress *models.BadgeProgress, badge *models.BadgeDefinition, activity []*models.CompletedActivity) bool {
	if len(progress.Milestones) == 0 {
		progress.Milestones = models.SeedMilestones(badge.Requirements)
	}
	if len(progress.Milestones) != len(badge.Criteria) {
		return false
	}

	changed := false
	for i := range progress.Milestones {
		m := &progress.Milestones[i]
		criterion := &badge.Criteria[i]

		actual := s.calculator.criterionActual(criterion, activity)
		completed := s.calculator.criterionRatio(criterion, activity) >= 1.0
		if completed && actual < m.RequiredCount {
			// Threshold criteria score complete without a literal count,
			// so the counter snaps to its goal.
			actual = m.RequiredCount
		}
		if actual > m.RequiredCount {
			actual = m.RequiredCount
		}

		if m.CurrentCount != actual || m.Completed != completed {
			m.CurrentCount = actual
			m.Completed = completed
			changed = true
		}
	}
	return changed
}

// ===============================
// COMPLETION HANDLING
// ===============================

// HandleCompletion drives the notification side of a completed badge.
// Both trigger paths (the direct call after the completing write and the
// change feed watcher) land here.
//
// Order matters: the durable notification row is written first, then
// notified_at is claimed. The unique badge earned index makes the insert
// idempotent, so racing callers produce one row, and a failure anywhere
// before the claim leaves the progress row unclaimed for the sweep to
// retry. Nothing is ever lost and nothing is ever doubled.
func (s *badgeService) HandleCompletion(ctx context.Context, progressID int64) error {
	progress, err := s.badgeRepo.GetProgressByID(ctx, progressID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("load progress %d: %w", progressID, err)
	}

	if !progress.IsCompleted() || progress.NotifiedAt != nil {
		return nil
	}

	if _, err := s.notifier.EmitBadgeEarned(ctx, progress.UserID, progress.BadgeID); err != nil {
		return fmt.Errorf("emit badge earned for progress %d: %w", progressID, err)
	}

	claimed, err := s.badgeRepo.ClaimNotification(ctx, progressID)
	if err != nil {
		return fmt.Errorf("claim notification for progress %d: %w", progressID, err)
	}
	if !claimed {
		// A racing handler finished first. The notification row already
		// deduplicated, so there is nothing left to do.
		return nil
	}

	s.logger.Info("Badge completion notified",
		zap.Int64("progress_id", progressID),
		zap.Int64("user_id", progress.UserID),
		zap.Int64("badge_id", progress.BadgeID),
	)
	return nil
}

// ===============================
// PRESENTATION VIEWS
// ===============================

// GetStats returns the aggregate badge standing, cached briefly because
// the mobile home screen polls it
func (s *badgeService) GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	cacheKey := statsCacheKey(userID)
	if cached, found := s.cache.Get(ctx, cacheKey); found {
		if stats, ok := cached.(*models.BadgeStats); ok {
			return stats, nil
		}
	}

	stats, err := s.badgeRepo.GetStats(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get badge stats", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to get badge stats")
	}

	if err := s.cache.Set(ctx, cacheKey, stats, s.cfg.StatsCacheTTL); err != nil {
		s.logger.Warn("Failed to cache badge stats", zap.Error(err), zap.Int64("user_id", userID))
	}
	return stats, nil
}

// GetConquered lists completed badges grouped by category
func (s *badgeService) GetConquered(ctx context.Context, req *ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error) {
	return s.listGrouped(ctx, req, true, "achieved_at")
}

// GetUnconquered lists badges still in play grouped by category
func (s *badgeService) GetUnconquered(ctx context.Context, req *ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error) {
	return s.listGrouped(ctx, req, false, "progress")
}

func (s *badgeService) listGrouped(ctx context.Context, req *ListBadgeProgressRequest, completed bool, defaultSort string) ([]*models.CategoryBadgeGroup, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge listing request", err)
	}

	sort := req.Sort
	if sort == "" {
		sort = defaultSort
	}
	order := req.Order
	if order == "" {
		order = "desc"
	}

	records, err := s.badgeRepo.ListProgress(ctx, req.UserID, completed, sort, order)
	if err != nil {
		s.logger.Error("Failed to list badge progress",
			zap.Error(err), zap.Int64("user_id", req.UserID), zap.Bool("completed", completed))
		return nil, NewInternalError("failed to list badge progress")
	}

	return groupByCategory(records), nil
}

// groupByCategory buckets progress records into the fixed category order,
// preserving the sort order within each bucket. Empty categories are
// omitted.
func groupByCategory(records []*models.BadgeProgress) []*models.CategoryBadgeGroup {
	buckets := make(map[models.BadgeCategory][]*models.BadgeProgress, len(categoryOrder))
	for _, r := range records {
		if r.Badge == nil {
			continue
		}
		buckets[r.Badge.Category] = append(buckets[r.Badge.Category], r)
	}

	groups := make([]*models.CategoryBadgeGroup, 0, len(buckets))
	for _, category := range categoryOrder {
		if badges, ok := buckets[category]; ok {
			groups = append(groups, &models.CategoryBadgeGroup{
				Category: category,
				Badges:   badges,
			})
		}
	}
	return groups
}

// ===============================
// INTERNAL HELPERS
// ===============================

// applyCompletionTransition moves a record that reached full progress to
// COMPLETED and stamps achieved_at, all on the in-memory record so the
// caller's single write carries the whole transition. It reports whether
// the transition happened on this call.
func (s *badgeService) applyCompletionTransition(progress *models.BadgeProgress) bool {
	if progress.Status == models.BadgeStatusCompleted {
		if progress.AchievedAt == nil {
			now := time.Now().UTC()
			progress.AchievedAt = &now
			return true
		}
		return false
	}

	if progress.Progress >= 100 {
		now := time.Now().UTC()
		progress.Status = models.BadgeStatusCompleted
		progress.Progress = 100
		progress.AchievedAt = &now
		return true
	}

	// Reaching any progress reveals a hidden badge. LOCKED records are
	// different: only an administrative or onboarding action unlocks
	// them, so accumulating progress leaves them LOCKED.
	if progress.Status == models.BadgeStatusHidden && progress.Progress > 0 {
		progress.Status = models.BadgeStatusVisible
	}
	return false
}

// afterProgressWrite runs the best-effort side effects of a persisted
// progress change: stats invalidation, events and the direct completion
// notification path. None of them can fail the primary write.
func (s *badgeService) afterProgressWrite(ctx context.Context, progress *models.BadgeProgress, completedNow bool) {
	s.invalidateStats(ctx, progress.UserID)

	badgeKey := ""
	badgeName := ""
	xpReward := 0
	if progress.Badge != nil {
		badgeKey = progress.Badge.Key
		badgeName = progress.Badge.Name
		xpReward = progress.Badge.XPReward
	}

	s.publish(ctx, events.NewBadgeProgressUpdatedEvent(
		progress.UserID, progress.BadgeID, progress.ID,
		badgeKey, float64(progress.Progress), string(progress.Status),
	))

	if completedNow {
		achievedAt := time.Now().UTC()
		if progress.AchievedAt != nil {
			achievedAt = *progress.AchievedAt
		}
		s.publish(ctx, events.NewBadgeCompletedEvent(
			progress.UserID, progress.BadgeID, progress.ID,
			badgeKey, badgeName, xpReward, achievedAt,
		))

		if err := s.HandleCompletion(ctx, progress.ID); err != nil {
			s.logger.Warn("Direct completion handling failed, watcher will retry",
				zap.Error(err), zap.Int64("progress_id", progress.ID))
		}
	}
}

func (s *badgeService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish badge event",
			zap.Error(err), zap.String("event_type", event.GetEventType()))
	}
}

func (s *badgeService) invalidateStats(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate badge stats cache",
			zap.Error(err), zap.Int64("user_id", userID))
	}
}

func statsCacheKey(userID int64) string {
	return fmt.Sprintf("badge:stats:%d", userID)
}

// summarizeMilestones folds milestone contributions into the 0-100
// summary. Records without milestones summarize to 0.
func summarizeMilestones(milestones models.MilestoneList) int {
	if len(milestones) == 0 {
		return 0
	}
	var total float64
	for i := range milestones {
		total += milestones[i].Contribution()
	}
	return clampProgress(int(total / float64(len(milestones)) * 100))
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
