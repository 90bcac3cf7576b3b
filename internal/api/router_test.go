package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/api"
	"github.com/pulsewatch/pulsewatch/internal/api/handler"
	"github.com/pulsewatch/pulsewatch/internal/api/models"
	"github.com/pulsewatch/pulsewatch/internal/auth"
	"github.com/pulsewatch/pulsewatch/internal/collector"
	"github.com/pulsewatch/pulsewatch/internal/contact"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
)

type testEnv struct {
	router      http.Handler
	auth        *auth.Service
	indicators  *indicator.Service
	collectors  *collector.Service
	schedules   *schedule.Service
	alerts      *alert.Service
	contacts    *contact.Service
	accessToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: "test-secret-key-for-testing-only",
			Issuer:     "https://api.pulsewatch.io",
			Audience:   "pulsewatch-api",
		}),
		UserRepo:    auth.NewInMemoryUserRepository(),
		RefreshRepo: auth.NewInMemoryRefreshTokenRepository(),
	})

	tokens, err := authService.Register(context.Background(), "ops@example.com", "correct-horse-battery", "Ops")
	require.NoError(t, err)

	env := &testEnv{
		auth:        authService,
		indicators:  indicator.NewService(indicator.NewInMemoryRepository()),
		collectors:  collector.NewService(collector.NewInMemoryRepository(), &collector.StaticSource{}),
		schedules:   schedule.NewService(schedule.NewInMemoryRepository()),
		alerts:      alert.NewService(alert.NewInMemoryRepository()),
		contacts:    contact.NewService(contact.NewInMemoryRepository()),
		accessToken: tokens.AccessToken,
	}

	env.router = api.NewRouter(api.RouterConfig{
		Version:          "test",
		BuildTime:        "2026-01-01T00:00:00Z",
		Logger:           zerolog.New(io.Discard),
		AuthService:      authService,
		IndicatorService: env.indicators,
		CollectorService: env.collectors,
		ScheduleService:  env.schedules,
		AlertService:     env.alerts,
		ContactService:   env.contacts,
		SubsystemChecks: []handler.SubsystemCheck{
			{Name: "store", Check: func(context.Context) error { return nil }},
		},
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.accessToken)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// unwrap decodes an envelope response and its inner data payload.
func unwrap(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		IsSuccess    bool            `json:"isSuccess"`
		Data         json.RawMessage `json:"data"`
		ErrorMessage string          `json:"errorMessage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.IsSuccess, "expected success envelope, got: %s", env.ErrorMessage)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func (e *testEnv) createFixtures(t *testing.T) (collectorID, scheduleID string) {
	t.Helper()

	var col models.Collector
	unwrap(t, e.do(t, http.MethodPost, "/api/v1/collectors", models.CollectorCreateRequest{
		Name:  "orders-db",
		Query: "SELECT count(*) AS failed FROM orders WHERE status = 'failed'",
	}), &col)

	var sched models.Schedule
	unwrap(t, e.do(t, http.MethodPost, "/api/v1/schedules", models.ScheduleCreateRequest{
		Name:     "every-five-minutes",
		CronSpec: "*/5 * * * *",
	}), &sched)

	return col.ID, sched.ID
}

func (e *testEnv) createIndicator(t *testing.T) models.Indicator {
	t.Helper()
	collectorID, scheduleID := e.createFixtures(t)

	var ind models.Indicator
	unwrap(t, e.do(t, http.MethodPost, "/api/v1/indicators", models.IndicatorCreateRequest{
		Name:        "failed-orders",
		CollectorID: collectorID,
		ItemName:    "orders",
		Threshold:   models.Threshold{Field: "failed", Comparison: "gt", Value: 10},
		ScheduleID:  scheduleID,
	}), &ind)
	return ind
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/ops/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.NotEmpty(t, status.Subsystems)
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"ops@example.com","password":"correct-horse-battery"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var tokens auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestRouter_Login_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"ops@example.com","password":"not-the-password"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_Indicators_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indicators", http.NoBody)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Indicators_CRUD(t *testing.T) {
	env := newTestEnv(t)
	ind := env.createIndicator(t)
	assert.NotEmpty(t, ind.ID)
	assert.True(t, ind.Active)

	var listed models.PagedIndicators
	unwrap(t, env.do(t, http.MethodGet, "/api/v1/indicators", nil), &listed)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, 1, listed.Meta.TotalCount)
	assert.False(t, listed.Meta.HasNextPage)
	assert.False(t, listed.Meta.HasPreviousPage)

	var got models.Indicator
	unwrap(t, env.do(t, http.MethodGet, "/api/v1/indicators/"+ind.ID, nil), &got)
	assert.Equal(t, "failed-orders", got.Name)

	name := "failed-orders-renamed"
	unwrap(t, env.do(t, http.MethodPut, "/api/v1/indicators/"+ind.ID, models.IndicatorUpdateRequest{
		Name: &name,
	}), &got)
	assert.Equal(t, name, got.Name)

	unwrap(t, env.do(t, http.MethodPost, "/api/v1/indicators/"+ind.ID+"/deactivate", nil), &got)
	assert.False(t, got.Active)

	unwrap(t, env.do(t, http.MethodDelete, "/api/v1/indicators/"+ind.ID, nil), nil)

	w := env.do(t, http.MethodGet, "/api/v1/indicators/"+ind.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var env2 models.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env2))
	assert.False(t, env2.IsSuccess)
	assert.NotEmpty(t, env2.ErrorMessage)
}

func TestRouter_Indicators_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/indicators", models.IndicatorCreateRequest{
		Name: "no-collector",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envl models.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envl))
	assert.False(t, envl.IsSuccess)
}

func TestRouter_Collectors_Items(t *testing.T) {
	env := newTestEnv(t)

	var col models.Collector
	unwrap(t, env.do(t, http.MethodPost, "/api/v1/collectors", models.CollectorCreateRequest{
		Name:      "queue-depth",
		Query:     "SELECT depth FROM queue_stats",
		ItemNames: []string{"payments", "emails"},
	}), &col)

	var names []string
	unwrap(t, env.do(t, http.MethodGet, "/api/v1/collectors/"+col.ID+"/items", nil), &names)
	assert.ElementsMatch(t, []string{"payments", "emails"}, names)
}

func TestRouter_Schedules_EnableDisable(t *testing.T) {
	env := newTestEnv(t)
	_, scheduleID := env.createFixtures(t)

	var sched models.Schedule
	unwrap(t, env.do(t, http.MethodPost, "/api/v1/schedules/"+scheduleID+"/disable", nil), &sched)
	assert.False(t, sched.Enabled)
	assert.Nil(t, sched.NextRunAt)

	unwrap(t, env.do(t, http.MethodPost, "/api/v1/schedules/"+scheduleID+"/enable", nil), &sched)
	assert.True(t, sched.Enabled)
	assert.NotNil(t, sched.NextRunAt)
}

func TestRouter_Alerts_RaiseAndResolve(t *testing.T) {
	env := newTestEnv(t)
	ind := env.createIndicator(t)

	var raised models.Alert
	unwrap(t, env.do(t, http.MethodPost, "/api/v1/alerts", models.AlertCreateRequest{
		IndicatorID:    ind.ID,
		ThresholdField: "failed",
		TriggeredValue: 42,
		ThresholdValue: 10,
	}), &raised)
	assert.False(t, raised.Resolved)

	var listed models.PagedAlerts
	unwrap(t, env.do(t, http.MethodGet, "/api/v1/alerts?unresolvedOnly=true", nil), &listed)
	require.Len(t, listed.Items, 1)

	var resolved models.Alert
	unwrap(t, env.do(t, http.MethodPost, "/api/v1/alerts/"+raised.ID+"/resolve",
		models.AlertResolveRequest{ResolvedBy: "ops@example.com"}), &resolved)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "ops@example.com", *resolved.ResolvedBy)

	w := env.do(t, http.MethodPost, "/api/v1/alerts/"+raised.ID+"/resolve",
		models.AlertResolveRequest{ResolvedBy: "ops@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_Contacts_CRUD(t *testing.T) {
	env := newTestEnv(t)

	var created models.Contact
	unwrap(t, env.do(t, http.MethodPost, "/api/v1/contacts", models.ContactRequest{
		Name:  "On-call",
		Email: "oncall@example.com",
	}), &created)
	assert.NotEmpty(t, created.ID)

	var listed []models.Contact
	unwrap(t, env.do(t, http.MethodGet, "/api/v1/contacts", nil), &listed)
	require.Len(t, listed, 1)

	unwrap(t, env.do(t, http.MethodDelete, "/api/v1/contacts/"+created.ID, nil), nil)

	w := env.do(t, http.MethodGet, "/api/v1/contacts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_WorkerStatus(t *testing.T) {
	env := newTestEnv(t)

	var status struct {
		Running bool `json:"running"`
	}
	unwrap(t, env.do(t, http.MethodGet, "/api/v1/worker/status", nil), &status)
	assert.False(t, status.Running)
}

func TestRouter_WorkerTrigger_NoScheduler(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/worker/trigger", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
