package badges

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

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBadgeService records calls so handler wiring can be asserted
type fakeBadgeService struct {
	lastListRequest   *services.ListBadgeProgressRequest
	lastUpdateRequest *services.UpdateBadgeProgressRequest
	resetUserID       int64
	resetBadgeID      int64
	recalculatedFor   []int64
	initializedFor    []int64

	badgeErr error
}

func (f *fakeBadgeService) GetBadgeByID(ctx context.Context, id int64) (*models.BadgeDefinition, error) {
	if f.badgeErr != nil {
		return nil, f.badgeErr
	}
	return &models.BadgeDefinition{ID: id, Key: "budget-master", Name: "Budget Master"}, nil
}

func (f *fakeBadgeService) ListActiveBadges(ctx context.Context) ([]*models.BadgeDefinition, error) {
	return []*models.BadgeDefinition{
		{ID: 1, Key: "budget-master", Name: "Budget Master"},
		{ID: 2, Key: "quick-fix", Name: "Quick Fix"},
	}, nil
}

func (f *fakeBadgeService) InitializeProgress(ctx context.Context, userID int64) (int, error) {
	f.initializedFor = append(f.initializedFor, userID)
	return 2, nil
}

func (f *fakeBadgeService) UpdateMilestoneProgress(ctx context.Context, userID, badgeID int64, increment int) (*models.BadgeProgress, error) {
	return nil, nil
}

func (f *fakeBadgeService) UpdateProgress(ctx context.Context, req *services.UpdateBadgeProgressRequest) (*models.BadgeProgress, error) {
	f.lastUpdateRequest = req
	return &models.BadgeProgress{
		ID: 9, UserID: req.UserID, BadgeID: req.BadgeID,
		Status: models.BadgeStatusVisible, Progress: 60,
	}, nil
}

func (f *fakeBadgeService) ResetProgress(ctx context.Context, userID, badgeID int64) (*models.BadgeProgress, error) {
	f.resetUserID = userID
	f.resetBadgeID = badgeID
	return &models.BadgeProgress{
		ID: 9, UserID: userID, BadgeID: badgeID,
		Status: models.BadgeStatusLocked, Progress: 0,
	}, nil
}

func (f *fakeBadgeService) ApplyQualifyingActivity(ctx context.Context, userID, sessionID int64) error {
	return nil
}

func (f *fakeBadgeService) RecalculateAll(ctx context.Context, userID int64) error {
	f.recalculatedFor = append(f.recalculatedFor, userID)
	return nil
}

func (f *fakeBadgeService) HandleCompletion(ctx context.Context, progressID int64) error {
	return nil
}

func (f *fakeBadgeService) GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	return &models.BadgeStats{
		TotalBadges:     7,
		CompletedBadges: 2,
		TotalXP:         125,
		PerCategory: map[models.BadgeCategory]models.CategoryProgress{
			models.BadgeCategoryBudget: {Total: 2, Completed: 1},
		},
	}, nil
}

func (f *fakeBadgeService) GetConquered(ctx context.Context, req *services.ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error) {
	f.lastListRequest = req
	achieved := time.Date(2026, 8, 9, 18, 0, 0, 0, time.UTC)
	return []*models.CategoryBadgeGroup{
		{
			Category: models.BadgeCategoryBudget,
			Badges: []*models.BadgeProgress{
				{ID: 1, UserID: req.UserID, BadgeID: 1, Status: models.BadgeStatusCompleted, Progress: 100, AchievedAt: &achieved},
			},
		},
	}, nil
}

func (f *fakeBadgeService) GetUnconquered(ctx context.Context, req *services.ListBadgeProgressRequest) ([]*models.CategoryBadgeGroup, error) {
	f.lastListRequest = req
	return []*models.CategoryBadgeGroup{}, nil
}

func newTestController(svc services.BadgeService) *BadgeController {
	return NewBadgeController(
		&services.ServiceCollection{BadgeService: svc},
		zap.NewNop(),
		response.NewBuilder(response.DefaultConfig(), zap.NewNop()),
	)
}

func testRouter(controller *BadgeController) chi.Router {
	r := chi.NewRouter()
	r.Get("/badges", controller.ListBadges)
	r.Get("/badges/{id}", controller.GetBadge)
	r.Get("/badges/conquered", controller.GetConquered)
	r.Get("/badges/stats", controller.GetStats)
	r.Post("/badges/progress/init", controller.InitializeProgress)
	r.Post("/badges/recalculate", controller.Recalculate)
	r.Put("/admin/users/{userID}/badges/{badgeID}/progress", controller.UpdateProgress)
	r.Post("/admin/users/{userID}/badges/{badgeID}/progress/reset", controller.ResetProgress)
	return r
}

func authedRequest(method, target string, body string, userID int64) *http.Request {
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

func TestBadgeController_ListBadges(t *testing.T) {
	router := testRouter(newTestController(&fakeBadgeService{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/badges", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])

	badges, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, badges, 2)
}

func TestBadgeController_GetBadge(t *testing.T) {
	t.Run("valid id", func(t *testing.T) {
		router := testRouter(newTestController(&fakeBadgeService{}))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/badges/3", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		data, ok := body["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(3), data["id"])
	})

	t.Run("non numeric id", func(t *testing.T) {
		router := testRouter(newTestController(&fakeBadgeService{}))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/badges/abc", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		errObj, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", errObj["type"])
	})

	t.Run("missing badge", func(t *testing.T) {
		svc := &fakeBadgeService{badgeErr: services.NewNotFoundError("badge not found")}
		router := testRouter(newTestController(svc))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/badges/99", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBadgeController_GetConqueredPassesIdentityAndSort(t *testing.T) {
	svc := &fakeBadgeService{}
	router := testRouter(newTestController(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest("GET", "/badges/conquered?sort=achieved_at&order=desc", "", 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.lastListRequest)
	assert.Equal(t, int64(42), svc.lastListRequest.UserID)
	assert.Equal(t, "achieved_at", svc.lastListRequest.Sort)
	assert.Equal(t, "desc", svc.lastListRequest.Order)
}

func TestBadgeController_GetStats(t *testing.T) {
	router := testRouter(newTestController(&fakeBadgeService{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest("GET", "/badges/stats", "", 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), data["total_badges"])
	assert.Equal(t, float64(2), data["completed_badges"])
}

func TestBadgeController_InitializeProgress(t *testing.T) {
	svc := &fakeBadgeService{}
	router := testRouter(newTestController(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest("POST", "/badges/progress/init", "", 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int64{42}, svc.initializedFor)

	body := decodeBody(t, rr)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["created"])
}

func TestBadgeController_Recalculate(t *testing.T) {
	svc := &fakeBadgeService{}
	router := testRouter(newTestController(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest("POST", "/badges/recalculate", "", 42))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []int64{42}, svc.recalculatedFor)
}

func TestBadgeController_UpdateProgress(t *testing.T) {
	t.Run("path identifiers override the body", func(t *testing.T) {
		svc := &fakeBadgeService{}
		router := testRouter(newTestController(svc))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(
			"PUT", "/admin/users/7/badges/3/progress",
			`{"status": "VISIBLE", "progress": 60}`, 1))

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, svc.lastUpdateRequest)
		assert.Equal(t, int64(7), svc.lastUpdateRequest.UserID)
		assert.Equal(t, int64(3), svc.lastUpdateRequest.BadgeID)
		require.NotNil(t, svc.lastUpdateRequest.Status)
		assert.Equal(t, models.BadgeStatusVisible, *svc.lastUpdateRequest.Status)
		require.NotNil(t, svc.lastUpdateRequest.Progress)
		assert.Equal(t, 60, *svc.lastUpdateRequest.Progress)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := testRouter(newTestController(&fakeBadgeService{}))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(
			"PUT", "/admin/users/7/badges/3/progress", `not json`, 1))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid user id in path", func(t *testing.T) {
		router := testRouter(newTestController(&fakeBadgeService{}))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(
			"PUT", "/admin/users/0/badges/3/progress", `{"progress": 10}`, 1))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestBadgeController_ResetProgress(t *testing.T) {
	svc := &fakeBadgeService{}
	router := testRouter(newTestController(svc))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest("POST", "/admin/users/7/badges/3/progress/reset", "", 1))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(7), svc.resetUserID)
	assert.Equal(t, int64(3), svc.resetBadgeID)
}
