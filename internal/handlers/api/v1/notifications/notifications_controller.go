// ===============================
// FILE: internal/handlers/api/v1/notifications/notifications_controller.go
// ===============================

package notifications

import (
	"encoding/json"
	"net/http"
	"strconv"

	"platewise/internal/contextutils"
	"platewise/internal/response"
	"platewise/internal/services"

	"go.uber.org/zap"
)

// NotificationController handles notification API endpoints
type NotificationController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
	responseBuilder   *response.Builder
}

// NewNotificationController creates a new notification controller
func NewNotificationController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *NotificationController {
	return &NotificationController{
		serviceCollection: serviceCollection,
		logger:            logger,
		responseBuilder:   responseBuilder,
	}
}

// idListRequest carries a batch of notification IDs
type idListRequest struct {
	IDs []int64 `json:"ids"`
}

// List handles GET /api/v1/notifications
//
//	@Summary	List notifications with the unread counter
//	@Tags		notifications
//	@Produce	json
//	@Security	BearerAuth
//	@Param		unread_only	query	bool	false	"Only unread notifications"
//	@Param		limit		query	int		false	"Page size"
//	@Param		offset		query	int		false	"Page offset"
//	@Success	200			{object}	response.APIResponse
//	@Router		/api/v1/notifications [get]
func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	pagination, err := response.ParsePagination(r, &response.PaginationConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
		AllowedSorts: []string{"created_at"},
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))

	list, err := c.serviceCollection.NotificationService.ListNotifications(r.Context(),
		&services.ListNotificationsRequest{
			UserID:     contextutils.GetUserID(r.Context()),
			UnreadOnly: unreadOnly,
			Pagination: pagination,
		})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, list)
}

// MarkRead handles POST /api/v1/notifications/read
//
//	@Summary	Mark a batch of notifications as read
//	@Tags		notifications
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/notifications/read [post]
func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}

	updated, err := c.serviceCollection.NotificationService.MarkRead(r.Context(),
		contextutils.GetUserID(r.Context()), req.IDs)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]int64{"updated": updated})
}

// Delete handles DELETE /api/v1/notifications
//
//	@Summary	Delete a batch of notifications
//	@Tags		notifications
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.APIResponse
//	@Router		/api/v1/notifications [delete]
func (c *NotificationController) Delete(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", nil))
		return
	}

	deleted, err := c.serviceCollection.NotificationService.DeleteNotifications(r.Context(),
		contextutils.GetUserID(r.Context()), req.IDs)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Notifications deleted",
		zap.Int64("user_id", contextutils.GetUserID(r.Context())),
		zap.Int64("deleted", deleted),
	)
	c.responseBuilder.WriteSuccess(w, r, map[string]int64{"deleted": deleted})
}
