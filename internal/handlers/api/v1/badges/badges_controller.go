// ===============================
// FILE: internal/handlers/api/v1/badges/badges_controller.go
// ===============================

package badges

import (
	"encoding/json"
	"net/http"
	"strconv"

	"platewise/internal/contextutils"
	"platewise/internal/response"
	"platewise/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BadgeController handles badge catalog and progress API endpoints
type BadgeController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
	responseBuilder   *response.Builder
}

// NewBadgeController creates a new badge controller
func NewBadgeController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *BadgeController {
	return &BadgeController{
		serviceCollection: serviceCollection,
		logger:            logger,
		responseBuilder:   responseBuilder,
	}
}

// ===============================
// CATALOG
// ===============================

// ListBadges handles GET /api/v1/badges
//
//	@Summary	List the earnable badge catalog
//	@Tags		badges
//	@Produce	json
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/badges [get]
func (c *BadgeController) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := c.serviceCollection.BadgeService.ListActiveBadges(r.Context())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, badges)
}

// GetBadge handles GET /api/v1/badges/{id}
//
//	@Summary	Get one catalog badge
//	@Tags		badges
//	@Produce	json
//	@Param		id	path	int	true	"Badge ID"
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/badges/{id} [get]
func (c *BadgeController) GetBadge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	badge, err := c.serviceCollection.BadgeService.GetBadgeByID(r.Context(), id)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, badge)
}

// ===============================
// PROGRESS VIEWS
// ===============================

// GetConquered handles GET /api/v1/badges/conquered
//
//	@Summary	List earned badges grouped by category
//	@Tags		badges
//	@Produce	json
//	@Security	BearerAuth
//	@Param		sort	query	string	false	"Sort field"	Enums(achieved_at, progress, rarity)
//	@Param		order	query	string	false	"Sort order"	Enums(asc, desc)
//	@Success	200		{object}	response.APIResponse
//	@Router		/api/v1/badges/conquered [get]
func (c *BadgeController) GetConquered(w http.ResponseWriter, r *http.Request) {
	groups, err := c.serviceCollection.BadgeService.GetConquered(r.Context(), c.listRequest(r))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, groups)
}

// GetUnconquered handles GET /api/v1/badges/unconquered
//
//	@Summary	List badges still in play grouped by category
//	@Tags		badges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/badges/unconquered [get]
func (c *BadgeController) GetUnconquered(w http.ResponseWriter, r *http.Request) {
	groups, err := c.serviceCollection.BadgeService.GetUnconquered(r.Context(), c.listRequest(r))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, groups)
}

// GetStats handles GET /api/v1/badges/stats
//
//	@Summary	Aggregate badge standing for the authenticated user
//	@Tags		badges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/badges/stats [get]
func (c *BadgeController) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.serviceCollection.BadgeService.GetStats(r.Context(),
		contextutils.GetUserID(r.Context()))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, stats)
}

// ===============================
// PROGRESS LIFECYCLE
// ===============================

// InitializeProgress handles POST /api/v1/badges/progress/init
//
//	@Summary	Create missing progress records for the authenticated user
//	@Tags		badges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/badges/progress/init [post]
func (c *BadgeController) InitializeProgress(w http.ResponseWriter, r *http.Request) {
	created, err := c.serviceCollection.BadgeService.InitializeProgress(r.Context(),
		contextutils.GetUserID(r.Context()))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]int{"created": created})
}

// Recalculate handles POST /api/v1/badges/recalculate
//
//	@Summary	Rescore all badges against the full activity history
//	@Tags		badges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	204
//	@Router		/api/v1/badges/recalculate [post]
func (c *BadgeController) Recalculate(w http.ResponseWriter, r *http.Request) {
	if err := c.serviceCollection.BadgeService.RecalculateAll(r.Context(),
		contextutils.GetUserID(r.Context())); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteNoContent(w, r)
}

// ===============================
// ADMINISTRATIVE OVERRIDES
// ===============================

// UpdateProgress handles PUT /api/v1/admin/users/{userID}/badges/{badgeID}/progress
//
//	@Summary	Administrative badge progress override
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		userID	path	int	true	"User ID"
//	@Param		badgeID	path	int	true	"Badge ID"
//	@Success	200		{object}	response.APIResponse
//	@Router		/api/v1/admin/users/{userID}/badges/{badgeID}/progress [put]
func (c *BadgeController) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	badgeID, err := pathID(r, "badgeID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.UpdateBadgeProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}
	req.UserID = userID
	req.BadgeID = badgeID

	progress, err := c.serviceCollection.BadgeService.UpdateProgress(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Badge progress overridden",
		zap.Int64("admin_id", contextutils.GetUserID(r.Context())),
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
	)
	c.responseBuilder.WriteSuccess(w, r, progress)
}

// ResetProgress handles POST /api/v1/admin/users/{userID}/badges/{badgeID}/progress/reset
//
//	@Summary	Reset one badge to its untracked baseline
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Param		userID	path	int	true	"User ID"
//	@Param		badgeID	path	int	true	"Badge ID"
//	@Success	200		{object}	response.APIResponse
//	@Router		/api/v1/admin/users/{userID}/badges/{badgeID}/progress/reset [post]
func (c *BadgeController) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	badgeID, err := pathID(r, "badgeID")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	progress, err := c.serviceCollection.BadgeService.ResetProgress(r.Context(), userID, badgeID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Badge progress reset via API",
		zap.Int64("admin_id", contextutils.GetUserID(r.Context())),
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
	)
	c.responseBuilder.WriteSuccess(w, r, progress)
}

// ===============================
// HELPERS
// ===============================

func (c *BadgeController) listRequest(r *http.Request) *services.ListBadgeProgressRequest {
	query := r.URL.Query()
	return &services.ListBadgeProgressRequest{
		UserID: contextutils.GetUserID(r.Context()),
		Sort:   query.Get("sort"),
		Order:  query.Get("order"),
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError("invalid "+name, nil)
	}
	return id, nil
}
