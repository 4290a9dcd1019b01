package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-radar-alerts/internal/models"
	"github.com/mr1hm/go-radar-alerts/internal/moderation"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
	"github.com/mr1hm/go-radar-alerts/internal/registry"
	"github.com/mr1hm/go-radar-alerts/internal/repository"
)

// mockStates implements StateReader for testing
type mockStates struct {
	snap       models.Snapshot
	states     []models.AlertState
	lastFilter repository.Filter
	err        error
}

func (m *mockStates) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return m.snap, m.err
}

func (m *mockStates) ListStates(ctx context.Context, opts repository.Filter) ([]models.AlertState, error) {
	m.lastFilter = opts
	if m.err != nil {
		return nil, m.err
	}
	results := m.states
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// mockModeration implements Moderation for testing
type mockModeration struct {
	admins     map[int64]bool
	banned     map[int64]bool
	handled    map[string]bool
	lastReason string
	err        error
}

func newMockModeration() *mockModeration {
	return &mockModeration{
		admins:  map[int64]bool{900: true},
		banned:  map[int64]bool{},
		handled: map[string]bool{},
	}
}

func (m *mockModeration) IsAdmin(userID int64) bool { return m.admins[userID] }

func (m *mockModeration) SubmitReport(ctx context.Context, userID int64, text string) (models.PendingReport, error) {
	if m.banned[userID] {
		return models.PendingReport{}, moderation.ErrBanned
	}
	return models.PendingReport{ID: "r1", UserID: userID, Text: text, SubmittedAt: time.Now()}, nil
}

func (m *mockModeration) decide(id string) error {
	if id != "r1" {
		return moderation.ErrNotFound
	}
	if m.handled[id] {
		return moderation.ErrAlreadyHandled
	}
	m.handled[id] = true
	return nil
}

func (m *mockModeration) Approve(ctx context.Context, adminID int64, reportID string) (pipeline.Result, error) {
	if err := m.decide(reportID); err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{
		Answer: "HD/Курская область/UAV",
		Facts:  1,
		Transitions: []models.Transition{
			{Region: "Курская область", HazardType: models.HazardDrone, Severity: models.SeverityHigh, Source: "Admin"},
		},
	}, nil
}

func (m *mockModeration) Reject(ctx context.Context, adminID int64, reportID string) (models.PendingReport, error) {
	if err := m.decide(reportID); err != nil {
		return models.PendingReport{}, err
	}
	return models.PendingReport{ID: reportID, Handled: true, Decision: models.DecisionRejected}, nil
}

func (m *mockModeration) AdminReport(ctx context.Context, adminID int64, text, comment string) (pipeline.Result, error) {
	return pipeline.Result{Answer: "AC/Россия/ALL"}, m.err
}

func (m *mockModeration) Ban(ctx context.Context, adminID, userID int64, reason string) (bool, error) {
	m.lastReason = reason
	changed := !m.banned[userID]
	m.banned[userID] = true
	return changed, nil
}

func (m *mockModeration) Unban(ctx context.Context, adminID, userID int64, reason string) (bool, error) {
	m.lastReason = reason
	changed := m.banned[userID]
	m.banned[userID] = false
	return changed, nil
}

func (m *mockModeration) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return m.banned[userID], nil
}

func (m *mockModeration) Broadcast(ctx context.Context, adminID int64, text string) (int, int, error) {
	return 3, 1, m.err
}

func (m *mockModeration) Subscribe(ctx context.Context, userID int64, region string) ([]models.Region, error) {
	if region == "Атлантида" {
		return nil, registry.ErrUnknownRegion
	}
	return []models.Region{"Курская область"}, nil
}

func (m *mockModeration) Unsubscribe(ctx context.Context, userID int64, region string) ([]models.Region, error) {
	return []models.Region{"Курская область"}, nil
}

func (m *mockModeration) Subscriptions(ctx context.Context, userID int64) ([]models.Region, error) {
	return []models.Region{"Курская область", "Брянская область"}, nil
}

// testChannels implements Channels for testing
type testChannels []string

func (c testChannels) Channels() []string { return c }

func setupTestRouter(t *testing.T, states *mockStates, mod *mockModeration) *gin.Engine {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(states, reg, testChannels{"radar_north", "radar_south"}, mod, nil)
	handler.RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var asAdmin = map[string]string{AdminHeader: "900"}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	w := do(router, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestGetStatuses(t *testing.T) {
	states := &mockStates{snap: models.Snapshot{
		"Курская область": {models.HazardDrone: models.SeverityHigh},
	}}
	router := setupTestRouter(t, states, newMockModeration())

	w := do(router, "GET", "/api/statuses", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var snap map[string]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if snap["Курская область"]["UAV"] != "HD" {
		t.Errorf("unexpected snapshot: %v", snap)
	}
}

func TestGetStatuses_ErrorIsGeneric(t *testing.T) {
	states := &mockStates{err: errors.New("database is locked: /var/lib/radar.db")}
	router := setupTestRouter(t, states, newMockModeration())

	w := do(router, "GET", "/api/statuses", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("radar.db")) {
		t.Errorf("error body leaks internals: %s", w.Body.String())
	}
}

func TestGetRegions(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	w := do(router, "GET", "/api/regions", "", nil)
	var resp struct {
		Regions []string `json:"regions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Regions) != 89 {
		t.Errorf("expected 89 regions, got %d", len(resp.Regions))
	}
}

func TestGetChannels(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	w := do(router, "GET", "/api/channels", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Channels []string `json:"channels"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Channels) != 2 || resp.Channels[0] != "radar_north" || resp.Channels[1] != "radar_south" {
		t.Errorf("unexpected channels: %v", resp.Channels)
	}
}

func TestGetChannels_NoneConfigured(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(&mockStates{}, reg, testChannels(nil), newMockModeration(), nil).RegisterRoutes(router)

	w := do(router, "GET", "/api/channels", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"channels":[]}` {
		t.Errorf("expected empty list, got %s", body)
	}
}

func TestGetHistory_NormalizesRegionAndDefaultsLimit(t *testing.T) {
	states := &mockStates{}
	for i := 0; i < 8; i++ {
		states.states = append(states.states, models.AlertState{
			Region: "Курская область", HazardType: models.HazardDrone, Severity: models.SeverityHigh, CreatedAt: time.Now(),
		})
	}
	router := setupTestRouter(t, states, newMockModeration())

	w := do(router, "GET", "/api/regions/курская/history", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if states.lastFilter.Region == nil || *states.lastFilter.Region != "Курская область" {
		t.Errorf("expected normalized region filter, got %v", states.lastFilter.Region)
	}
	if states.lastFilter.Limit != defaultHistoryLimit {
		t.Errorf("expected limit %d, got %d", defaultHistoryLimit, states.lastFilter.Limit)
	}

	var resp struct {
		Region  string      `json:"region"`
		History []StateView `json:"history"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.History) != defaultHistoryLimit {
		t.Errorf("expected %d entries, got %d", defaultHistoryLimit, len(resp.History))
	}
}

func TestGetHistory_LimitParam(t *testing.T) {
	tests := map[string]int{
		"limit=3":   3,
		"limit=500": maxHistoryLimit,
		"limit=abc": defaultHistoryLimit,
		"limit=-1":  defaultHistoryLimit,
	}
	for query, want := range tests {
		states := &mockStates{}
		router := setupTestRouter(t, states, newMockModeration())
		do(router, "GET", "/api/regions/Курская%20область/history?"+query, "", nil)
		if states.lastFilter.Limit != want {
			t.Errorf("%s: expected limit %d, got %d", query, want, states.lastFilter.Limit)
		}
	}
}

func TestGetHistory_UnknownRegion(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	for _, path := range []string{"/api/regions/Атлантида/history", "/api/regions/Россия/history"} {
		w := do(router, "GET", path, "", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}
}

func TestSubmitReport(t *testing.T) {
	mod := newMockModeration()
	mod.banned[13] = true
	router := setupTestRouter(t, &mockStates{}, mod)

	w := do(router, "POST", "/api/reports", `{"user_id": 42, "text": "БПЛА над Курском"}`, nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", w.Code)
	}
	var view ReportView
	json.Unmarshal(w.Body.Bytes(), &view)
	if view.ID != "r1" || view.UserID != 42 {
		t.Errorf("unexpected report view: %+v", view)
	}

	w = do(router, "POST", "/api/reports", `{"user_id": 13, "text": "spam"}`, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for banned user, got %d", w.Code)
	}

	w = do(router, "POST", "/api/reports", `{"text": "no user"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestSubscriptions(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	w := do(router, "POST", "/api/subscriptions", `{"user_id": 42, "region": "курская"}`, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	w = do(router, "POST", "/api/subscriptions", `{"user_id": 42, "region": "Атлантида"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown region, got %d", w.Code)
	}

	w = do(router, "DELETE", "/api/subscriptions", `{"user_id": 42, "region": "all"}`, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	w = do(router, "GET", "/api/users/42/subscriptions", "", nil)
	var resp struct {
		Regions []string `json:"regions"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Regions) != 2 {
		t.Errorf("expected 2 regions, got %v", resp.Regions)
	}

	w = do(router, "GET", "/api/users/abc/subscriptions", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestAdmin_RequiresAllowlistedHeader(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	for _, header := range []map[string]string{nil, {AdminHeader: "42"}, {AdminHeader: "abc"}} {
		w := do(router, "POST", "/api/admin/broadcast", `{"text": "hi"}`, header)
		if w.Code != http.StatusForbidden {
			t.Errorf("header %v: expected status 403, got %d", header, w.Code)
		}
	}

	w := do(router, "POST", "/api/admin/broadcast", `{"text": "hi"}`, asAdmin)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestAdmin_ApproveOnce(t *testing.T) {
	router := setupTestRouter(t, &mockStates{}, newMockModeration())

	w := do(router, "POST", "/api/admin/reports/r1/approve", "", asAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var res ResultView
	json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Transitions) != 1 || res.Facts != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	w = do(router, "POST", "/api/admin/reports/r1/reject", "", asAdmin)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}

	w = do(router, "POST", "/api/admin/reports/missing/approve", "", asAdmin)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestAdmin_BanUnban(t *testing.T) {
	mod := newMockModeration()
	router := setupTestRouter(t, &mockStates{}, mod)

	w := do(router, "POST", "/api/admin/users/42/ban", `{"reason": "спам"}`, asAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if mod.lastReason != "спам" {
		t.Errorf("expected reason to be passed, got %q", mod.lastReason)
	}

	w = do(router, "GET", "/api/admin/users/42/banned", "", asAdmin)
	var resp struct {
		Banned bool `json:"banned"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Banned {
		t.Errorf("expected user to be banned")
	}

	w = do(router, "POST", "/api/admin/users/42/unban", "", asAdmin)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 without a body, got %d", w.Code)
	}
	if mod.banned[42] {
		t.Errorf("expected user to be unbanned")
	}
}

func TestAdmin_ReportAndBroadcastErrors(t *testing.T) {
	mod := newMockModeration()
	router := setupTestRouter(t, &mockStates{}, mod)

	w := do(router, "POST", "/api/admin/report", `{"text": "Курская область\nБПЛА", "comment": "проверено"}`, asAdmin)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	mod.err = moderation.ErrEmptyText
	w = do(router, "POST", "/api/admin/broadcast", `{"text": " "}`, asAdmin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	mod.err = errors.New("telegram: connection reset")
	w = do(router, "POST", "/api/admin/broadcast", `{"text": "hi"}`, asAdmin)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/statuses", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := do(router, "GET", "/api/statuses", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected first request to pass, got %d", w.Code)
	}
	if w := do(router, "GET", "/api/statuses", "", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
	for i := 0; i < 3; i++ {
		if w := do(router, "GET", "/health", "", nil); w.Code != http.StatusOK {
			t.Errorf("health should not be rate limited, got %d", w.Code)
		}
	}
}
