package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"platewise/internal/contextutils"
	"platewise/internal/models"
	"platewise/internal/response"
	"platewise/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeNotificationService records the requests the handlers build
type fakeNotificationService struct {
	lastListRequest *services.ListNotificationsRequest
	markReadUserID  int64
	markReadIDs     []int64
	deletedUserID   int64
	deletedIDs      []int64

	markReadErr error
}

func (f *fakeNotificationService) EmitBadgeEarned(ctx context.Context, userID, badgeID int64) (*models.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationService) ListNotifications(ctx context.Context, req *services.ListNotificationsRequest) (*services.NotificationListResponse, error) {
	f.lastListRequest = req
	return &services.NotificationListResponse{
		Notifications: &models.PaginatedResponse[*models.Notification]{
			Data: []*models.Notification{
				{ID: 1, UserID: req.UserID, Type: "badge_earned", Title: "Badge earned: Budget Master", CreatedAt: time.Now().UTC()},
			},
			Pagination: models.PaginationMeta{TotalItems: 1, ItemsPerPage: req.Pagination.Limit},
		},
		UnreadCount: 1,
	}, nil
}

func (f *fakeNotificationService) MarkRead(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if f.markReadErr != nil {
		return 0, f.markReadErr
	}
	f.markReadUserID = userID
	f.markReadIDs = ids
	return int64(len(ids)), nil
}

func (f *fakeNotificationService) DeleteNotifications(ctx context.Context, userID int64, ids []int64) (int64, error) {
	f.deletedUserID = userID
	f.deletedIDs = ids
	return int64(len(ids)), nil
}

func newTestController(svc services.NotificationService) *NotificationController {
	return NewNotificationController(
		&services.ServiceCollection{NotificationService: svc},
		zap.NewNop(),
		response.NewBuilder(response.DefaultConfig(), zap.NewNop()),
	)
}

func authedRequest(method, target, body string, userID int64) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(contextutils.WithUserID(req.Context(), userID))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestNotificationController_List(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		svc := &fakeNotificationService{}
		controller := newTestController(svc)

		rr := httptest.NewRecorder()
		controller.List(rr, authedRequest("GET", "/notifications", "", 42))

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, svc.lastListRequest)
		assert.Equal(t, int64(42), svc.lastListRequest.UserID)
		assert.False(t, svc.lastListRequest.UnreadOnly)
		assert.Equal(t, 20, svc.lastListRequest.Pagination.Limit)

		body := decodeBody(t, rr)
		data, ok := body["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), data["unread_count"])
	})

	t.Run("unread only with custom page size", func(t *testing.T) {
		svc := &fakeNotificationService{}
		controller := newTestController(svc)

		rr := httptest.NewRecorder()
		controller.List(rr, authedRequest("GET", "/notifications?unread_only=true&limit=5", "", 42))

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, svc.lastListRequest)
		assert.True(t, svc.lastListRequest.UnreadOnly)
		assert.Equal(t, 5, svc.lastListRequest.Pagination.Limit)
	})

	t.Run("limit above the cap is rejected", func(t *testing.T) {
		controller := newTestController(&fakeNotificationService{})

		rr := httptest.NewRecorder()
		controller.List(rr, authedRequest("GET", "/notifications?limit=5000", "", 42))

		// ParsePagination clamps rather than rejects
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestNotificationController_MarkRead(t *testing.T) {
	t.Run("scoped to the authenticated user", func(t *testing.T) {
		svc := &fakeNotificationService{}
		controller := newTestController(svc)

		rr := httptest.NewRecorder()
		controller.MarkRead(rr, authedRequest("POST", "/notifications/read", `{"ids": [1, 2, 3]}`, 42))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(42), svc.markReadUserID)
		assert.Equal(t, []int64{1, 2, 3}, svc.markReadIDs)

		body := decodeBody(t, rr)
		data, ok := body["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(3), data["updated"])
	})

	t.Run("malformed body", func(t *testing.T) {
		controller := newTestController(&fakeNotificationService{})

		rr := httptest.NewRecorder()
		controller.MarkRead(rr, authedRequest("POST", "/notifications/read", `not json`, 42))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("service validation error surfaces", func(t *testing.T) {
		svc := &fakeNotificationService{
			markReadErr: services.NewValidationError("at least one notification id is required", nil),
		}
		controller := newTestController(svc)

		rr := httptest.NewRecorder()
		controller.MarkRead(rr, authedRequest("POST", "/notifications/read", `{"ids": []}`, 42))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		errObj, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", errObj["type"])
	})
}

func TestNotificationController_Delete(t *testing.T) {
	svc := &fakeNotificationService{}
	controller := newTestController(svc)

	rr := httptest.NewRecorder()
	controller.Delete(rr, authedRequest("DELETE", "/notifications", `{"ids": [4, 5]}`, 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(42), svc.deletedUserID)
	assert.Equal(t, []int64{4, 5}, svc.deletedIDs)
}
