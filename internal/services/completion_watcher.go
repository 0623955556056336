// file: internal/services/completion_watcher.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"platewise/internal/cache"
	"platewise/internal/config"
	"platewise/internal/database"
	"platewise/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// completionPayload is the JSON body the database trigger attaches to a
// change feed notification
type completionPayload struct {
	ProgressID int64 `json:"progress_id"`
	UserID     int64 `json:"user_id"`
	BadgeID    int64 `json:"badge_id"`
}

// changeFeed is the slice of the change listener the watcher consumes
type changeFeed interface {
	Notifications() <-chan *pq.Notification
	Reconnects() <-chan struct{}
	Ping(ctx context.Context) error
}

// CompletionWatcher consumes the badge completion change feed and drives
// the notification claim for each completion it sees. It is the safety
// net behind the direct notification path: the persisted claim makes a
// double delivery impossible, so the watcher's in-process dedupe set only
// sheds redundant work.
//
// The watcher never takes the host process down. Listener reconnects are
// handled by pq with exponential backoff, and every reconnect is followed
// by a sweep of unclaimed completions so nothing announced while the
// connection was down is lost.
type CompletionWatcher struct {
	listener  changeFeed
	badges    BadgeService
	badgeRepo repositories.BadgeRepository
	cache     cache.Cache
	cfg       config.BadgeConfig
	logger    *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewCompletionWatcher creates a new completion watcher
func NewCompletionWatcher(
	listener changeFeed,
	badges BadgeService,
	badgeRepo repositories.BadgeRepository,
	c cache.Cache,
	cfg config.BadgeConfig,
	logger *zap.Logger,
) *CompletionWatcher {
	return &CompletionWatcher{
		listener:  listener,
		badges:    badges,
		badgeRepo: badgeRepo,
		cache:     c,
		cfg:       cfg,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Run consumes the change feed until the context is cancelled. It is
// meant to be launched once as a background goroutine from main.
func (w *CompletionWatcher) Run(ctx context.Context) {
	defer close(w.done)

	w.logger.Info("Completion watcher started",
		zap.String("channel", database.CompletionChannel),
		zap.Duration("dedupe_ttl", w.cfg.DedupeTTL),
		zap.Duration("sweep_interval", w.cfg.SweepInterval),
	)

	// Completions that happened before this process came up still owe
	// their notification.
	w.sweep(ctx)

	// The periodic sweep catches a NOTIFY dropped without any connection
	// state change. The interval only bounds notification latency in that
	// case, it carries no correctness weight.
	sweepInterval := w.cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Completion watcher stopping")
			return

		case <-ticker.C:
			w.sweep(ctx)

		case <-w.listener.Reconnects():
			w.logger.Warn("Change feed reconnected, sweeping for missed completions")
			w.sweep(ctx)

		case notification, ok := <-w.listener.Notifications():
			if !ok {
				w.logger.Warn("Change feed closed, completion watcher stopping")
				return
			}
			// pq delivers a nil notification after re-establishing the
			// connection; events may have been dropped in between.
			if notification == nil {
				w.sweep(ctx)
				continue
			}
			w.handleNotification(ctx, notification)
		}
	}
}

// Done is closed once Run has returned
func (w *CompletionWatcher) Done() <-chan struct{} {
	return w.done
}

// Health pings the underlying listener connection
func (w *CompletionWatcher) Health(ctx context.Context) error {
	return w.listener.Ping(ctx)
}

// handleNotification processes one change feed event. Errors are logged
// and swallowed: a broken event must not stop the feed.
func (w *CompletionWatcher) handleNotification(ctx context.Context, notification *pq.Notification) {
	var payload completionPayload
	if err := json.Unmarshal([]byte(notification.Extra), &payload); err != nil {
		w.logger.Error("Failed to decode completion payload",
			zap.Error(err), zap.String("payload", notification.Extra))
		return
	}
	if payload.ProgressID <= 0 {
		w.logger.Error("Completion payload missing progress id",
			zap.String("payload", notification.Extra))
		return
	}

	// The dedupe set suppresses the storm of duplicate events a batch
	// update can produce. Correctness does not depend on it.
	claimed, err := w.cache.SetNX(ctx, dedupeKey(payload.ProgressID), true, w.cfg.DedupeTTL)
	if err != nil {
		w.logger.Warn("Dedupe check failed, processing anyway",
			zap.Error(err), zap.Int64("progress_id", payload.ProgressID))
	} else if !claimed {
		return
	}

	if err := w.badges.HandleCompletion(ctx, payload.ProgressID); err != nil {
		w.logger.Error("Failed to handle badge completion",
			zap.Error(err),
			zap.Int64("progress_id", payload.ProgressID),
			zap.Int64("user_id", payload.UserID),
			zap.Int64("badge_id", payload.BadgeID),
		)
	}
}

// sweep claims every completed progress row still owing a notification.
// The query itself retries with exponential backoff because sweeps run
// exactly when the database was just unreachable.
func (w *CompletionWatcher) sweep(ctx context.Context) {
	var ids []int64

	operation := func() error {
		var err error
		ids, err = w.badgeRepo.ListUnclaimedCompletions(ctx, 500)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.cfg.WatcherMinBackoff
	policy.MaxInterval = w.cfg.WatcherMaxBackoff
	policy.MaxElapsedTime = 0

	notify := func(err error, next time.Duration) {
		w.logger.Warn("Completion sweep query failed, retrying",
			zap.Error(err), zap.Duration("retry_in", next))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		w.logger.Error("Completion sweep abandoned", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := w.badges.HandleCompletion(ctx, id); err != nil {
			w.logger.Error("Failed to handle swept completion",
				zap.Error(err), zap.Int64("progress_id", id))
		}
	}

	if len(ids) > 0 {
		w.logger.Info("Completion sweep finished", zap.Int("claimed", len(ids)))
	}
}

func dedupeKey(progressID int64) string {
	return fmt.Sprintf("badge:completion:dedupe:%d", progressID)
}
