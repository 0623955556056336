// file: internal/services/service_collection.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"platewise/internal/cache"
	"platewise/internal/config"
	"platewise/internal/database"
	"platewise/internal/events"
	"platewise/internal/repositories"
	"platewise/internal/utils"

	"go.uber.org/zap"
)

// ServiceCollection holds all services with their shared infrastructure
type ServiceCollection struct {
	// Core services
	AuthService         AuthService
	UserService         UserService
	RecipeService       RecipeService
	BadgeService        BadgeService
	NotificationService NotificationService

	// Background pipeline
	Watcher *CompletionWatcher

	// Repository collection
	Repositories *repositories.Collection

	// Infrastructure
	Cache     cache.Cache
	EventBus  events.EventBus
	Logger    *zap.Logger
	Config    *config.Config
	DBManager *database.Manager

	listener *database.ChangeListener

	mu          sync.Mutex
	watcherStop context.CancelFunc
	started     bool
}

// NewServiceCollection builds the full service graph on top of a
// connected database manager
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheProvider := "memory"
	if cfg.Cache.RedisURL != "" {
		cacheProvider = "redis"
	}
	appCache, err := cache.NewCache(&cache.Config{
		Provider:        cacheProvider,
		TTL:             cfg.Cache.DefaultTTL,
		MaxKeys:         10000,
		CleanupInterval: 5 * time.Minute,
		RedisURL:        cfg.Cache.RedisURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize cache: %w", err)
	}

	eventBus := events.NewEventBus(events.DefaultEventBusConfig(), logger)
	repos := repositories.NewCollection(dbManager, logger)

	var images utils.ImageStorage
	if cfg.Features.EnableFileUploads {
		cloudinarySvc, err := utils.NewCloudinaryService(cfg.Cloudinary, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize image storage: %w", err)
		}
		images = cloudinarySvc
	}

	notificationService := NewNotificationService(repos.Notification, repos.Badge, eventBus, logger)
	badgeService := NewBadgeService(
		repos.Badge, repos.Activity, notificationService,
		appCache, eventBus, cfg.Badges, logger,
	)
	recipeService := NewRecipeService(repos.Recipe, repos.Session, images, eventBus, logger)
	userService := NewUserService(repos.User, logger)
	authService := NewAuthService(repos.User, badgeService, eventBus, cfg.Auth, logger)

	listener, err := database.NewChangeListener(dbManager.URL(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize change listener: %w", err)
	}
	watcher := NewCompletionWatcher(listener, badgeService, repos.Badge, appCache, cfg.Badges, logger)

	sc := &ServiceCollection{
		AuthService:         authService,
		UserService:         userService,
		RecipeService:       recipeService,
		BadgeService:        badgeService,
		NotificationService: notificationService,
		Watcher:             watcher,
		Repositories:        repos,
		Cache:               appCache,
		EventBus:            eventBus,
		Logger:              logger,
		Config:              cfg,
		DBManager:           dbManager,
		listener:            listener,
	}

	if err := sc.subscribeHandlers(); err != nil {
		return nil, fmt.Errorf("subscribe event handlers: %w", err)
	}

	logger.Info("Service collection initialized",
		zap.String("cache_provider", cacheProvider),
		zap.Bool("uploads_enabled", images != nil),
	)
	return sc, nil
}

// subscribeHandlers wires the domain event flow: a completed cooking
// session first advances the badges it directly qualifies for, then a
// full recalculation trues up the rest. Neither step can ever fail the
// session itself.
func (sc *ServiceCollection) subscribeHandlers() error {
	recalculate := events.NewEventHandlerFunc("badge-progress-recalculator",
		func(ctx context.Context, event events.Event) error {
			userID := event.GetUserID()
			if userID == nil {
				return nil
			}
			if completed, ok := event.(*events.SessionCompletedEvent); ok {
				if err := sc.BadgeService.ApplyQualifyingActivity(ctx, *userID, completed.SessionID); err != nil {
					sc.Logger.Warn("Badge increment after session failed",
						zap.Error(err), zap.Int64("user_id", *userID),
						zap.Int64("session_id", completed.SessionID))
				}
			}
			if err := sc.BadgeService.RecalculateAll(ctx, *userID); err != nil {
				sc.Logger.Warn("Badge recalculation after session failed",
					zap.Error(err), zap.Int64("user_id", *userID))
			}
			return nil
		})
	if err := sc.EventBus.Subscribe("session.completed", recalculate); err != nil {
		return err
	}

	return nil
}

// Start launches the event bus workers and the completion watcher
func (sc *ServiceCollection) Start(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.started {
		return nil
	}

	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	watcherCtx, cancel := context.WithCancel(context.Background())
	sc.watcherStop = cancel
	go sc.Watcher.Run(watcherCtx)

	sc.started = true
	sc.Logger.Info("Services started")
	return nil
}

// Shutdown stops the background components in dependency order
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.started {
		return nil
	}

	if sc.watcherStop != nil {
		sc.watcherStop()
		select {
		case <-sc.Watcher.Done():
		case <-ctx.Done():
			sc.Logger.Warn("Completion watcher shutdown timed out")
		}
	}

	if err := sc.listener.Close(); err != nil {
		sc.Logger.Warn("Failed to close change listener", zap.Error(err))
	}

	if err := sc.EventBus.Stop(ctx); err != nil {
		sc.Logger.Warn("Failed to stop event bus", zap.Error(err))
	}

	if err := sc.Cache.Close(); err != nil {
		sc.Logger.Warn("Failed to close cache", zap.Error(err))
	}

	sc.started = false
	sc.Logger.Info("Services stopped")
	return nil
}

// HealthCheck verifies the infrastructure the services run on
func (sc *ServiceCollection) HealthCheck(ctx context.Context) map[string]error {
	checks := map[string]error{
		"database":  sc.DBManager.DB().PingContext(ctx),
		"cache":     sc.Cache.Health(ctx),
		"event_bus": sc.EventBus.Health(),
		"watcher":   sc.Watcher.Health(ctx),
	}
	return checks
}
