package routes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminToken = "test-admin-token"
	storyBody  = "Every Thursday the library basement turns into an unofficial chess club and nobody remembers who started it."
)

type testApp struct {
	app  *fiber.App
	repo *memory.Store
	auth *services.AuthService
	cfg  *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		StoreDriver:       config.StoreDriverMemory,
		JWTSecret:         "routes-test-secret-routes-test-secret",
		JWTAccessExpiry:   time.Hour,
		AdminToken:        adminToken,
		StaffRoles:        []string{"admin", "moderator"},
		ReconcileSchedule: "0 */5 * * * *",
		CORSOrigins:       "*",
		RateLimit:         0,
	}

	repo := memory.New()
	authService := services.NewAuthService(repo, cfg)
	resolver := services.NewIdentityResolver(authService, cfg.StaffRoles, cfg.TrustProxyHeaders)
	storyStore := services.NewStoryStore(repo)
	intake := services.NewIntake(services.NewContentSanitizer(), services.NewContentFilter(), storyStore)
	tracker := services.NewEngagementTracker(repo, storyStore)
	queue := services.NewModerationQueue(repo, storyStore)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(requestid.New())
	app.Use(middleware.Trace())

	Setup(app, cfg, resolver,
		handlers.NewAuthHandler(authService),
		handlers.NewHealthHandler(cfg.StoreDriver, nil),
		handlers.NewStoryHandler(intake, storyStore, tracker),
		handlers.NewModerationHandler(queue, jobs.NewReconcileJob(repo, repo)),
	)
	return &testApp{app: app, repo: repo, auth: authService, cfg: cfg}
}

type call struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

func (a *testApp) do(t *testing.T, c call) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func staff() map[string]string { return map[string]string{"X-Admin-Token": adminToken} }

func sessionHeader(token string) map[string]string {
	return map[string]string{middleware.SessionHeader: token}
}

func (a *testApp) submit(t *testing.T, title string) uuid.UUID {
	t.Helper()
	resp, raw := a.do(t, call{method: http.MethodPost, path: "/api/stories/", body: map[string]string{
		"title": title, "body": storyBody,
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	return decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, raw).ID
}

func TestStoryLifecycle(t *testing.T) {
	a := newTestApp(t)

	resp, raw := a.do(t, call{method: http.MethodPost, path: "/api/stories/", body: map[string]string{
		"title": "<b>Library</b> chess club", "body": storyBody,
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	submitted := decode[map[string]any](t, raw)
	assert.Equal(t, "Thanks! Your story was received.", submitted["message"])
	assert.NotContains(t, submitted, "status", "submitters never learn moderation state")
	id := uuid.MustParse(submitted["id"].(string))

	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/stories/" + id.String()})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "pending stories are not public")

	resp, raw = a.do(t, call{
		method: http.MethodPut, path: "/api/admin/stories/" + id.String() + "/moderate",
		body: map[string]any{"decision": "approved", "featured": true}, headers: staff(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	moderated := decode[services.ModerationResult](t, raw)
	assert.True(t, moderated.Changed)
	assert.Equal(t, models.StatusApproved, moderated.Story.Status)
	assert.Equal(t, "Library chess club", moderated.Story.Title)

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/api/stories/featured"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, decode[models.Story](t, raw).ID)

	for i := 0; i < 3; i++ {
		token := fmt.Sprintf("viewer-session-token-%02d", i)
		resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/stories/" + id.String() + "/view", headers: sessionHeader(token)})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		assert.Equal(t, token, resp.Header.Get(middleware.SessionHeader))
	}
	// Repeat from the first viewer does not count.
	resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/stories/" + id.String() + "/view", headers: sessionHeader("viewer-session-token-00")})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]any](t, raw)["recorded"].(bool))

	liker := sessionHeader("liker-session-token-0001")
	resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/stories/" + id.String() + "/like", headers: liker})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	like := decode[map[string]any](t, raw)
	assert.Equal(t, true, like["liked"])
	assert.EqualValues(t, 1, like["like_count"])

	resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/stories/" + id.String() + "/like", headers: liker})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	like = decode[map[string]any](t, raw)
	assert.Equal(t, false, like["liked"])
	assert.EqualValues(t, 0, like["like_count"])

	resp, raw = a.do(t, call{
		method: http.MethodPost, path: "/api/stories/" + id.String() + "/report",
		body: map[string]string{"reason": "spam", "session_id": "reporter-session-token-01"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.EqualValues(t, 1, decode[map[string]any](t, raw)["report_count"])
	assert.Equal(t, "reporter-session-token-01", resp.Header.Get(middleware.SessionHeader))

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/api/stories/" + id.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	public := decode[models.Story](t, raw)
	assert.EqualValues(t, 3, public.ViewCount)
	assert.Zero(t, public.LikeCount)
	assert.EqualValues(t, 1, public.ReportCount)

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/reported", headers: staff()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reported := decode[struct {
		Stories []models.Story `json:"stories"`
		Total   int64          `json:"total"`
	}](t, raw)
	require.Len(t, reported.Stories, 1)
	require.Len(t, reported.Stories[0].Reports, 1)
	assert.Equal(t, "spam", reported.Stories[0].Reports[0].Reason)

	resp, raw = a.do(t, call{
		method: http.MethodPut, path: "/api/admin/stories/" + id.String() + "/moderate",
		body: map[string]any{"decision": "declined"}, headers: staff(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[services.ModerationResult](t, raw).Changed, "decisions are final")
}

func TestSessionIsMintedAndEchoed(t *testing.T) {
	a := newTestApp(t)
	id := a.submit(t, "A story about the dining hall")
	path := "/api/stories/" + id.String() + "/view"

	resp, raw := a.do(t, call{method: http.MethodPost, path: path})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	minted := resp.Header.Get(middleware.SessionHeader)
	require.NotEmpty(t, minted)
	view := decode[map[string]any](t, raw)
	assert.Equal(t, minted, view["session_id"])
	assert.Equal(t, true, view["recorded"])

	// A client that drops the token is still recognized by its address.
	resp, raw = a.do(t, call{method: http.MethodPost, path: path})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, minted, resp.Header.Get(middleware.SessionHeader))
	assert.Equal(t, false, decode[map[string]any](t, raw)["recorded"])

	resp, _ = a.do(t, call{method: http.MethodPost, path: path + "?session_id=" + minted})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, minted, resp.Header.Get(middleware.SessionHeader))

	resp, raw = a.do(t, call{method: http.MethodPost, path: path, headers: sessionHeader(minted)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, raw)["recorded"])

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/?status=pending", headers: staff()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Stories []models.Story `json:"stories"`
	}](t, raw)
	require.Len(t, list.Stories, 1)
	assert.EqualValues(t, 2, list.Stories[0].ViewCount, "one address view and one session view")
}

func TestStaffGate(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	resp, _ := a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/pending"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/pending", headers: map[string]string{"X-Admin-Token": "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	student, err := a.auth.Register(ctx, registerReq("student@campus.edu"))
	require.NoError(t, err)
	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/pending", headers: bearer(student.AccessToken)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	require.NoError(t, a.repo.CreateUser(ctx, &models.User{Email: "mod@campus.edu", Password: "x", Role: "moderator"}))
	mod, err := a.repo.UserByEmail(ctx, "mod@campus.edu")
	require.NoError(t, err)
	token, err := services.SignAccessToken(mod.ID, mod.Role, a.cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/pending", headers: bearer(token)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/pending", headers: staff()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidationErrors(t *testing.T) {
	a := newTestApp(t)
	id := a.submit(t, "Valid title")

	tests := []struct {
		name  string
		call  call
		field string
	}{
		{
			name:  "missing title",
			call:  call{method: http.MethodPost, path: "/api/stories/", body: map[string]string{"body": storyBody}},
			field: "title",
		},
		{
			name:  "body too short after stripping",
			call:  call{method: http.MethodPost, path: "/api/stories/", body: map[string]string{"title": "Valid title", "body": "<p>short</p>"}},
			field: "body",
		},
		{
			name:  "unknown decision",
			call:  call{method: http.MethodPut, path: "/api/admin/stories/" + id.String() + "/moderate", body: map[string]string{"decision": "maybe"}, headers: staff()},
			field: "decision",
		},
		{
			name:  "empty report reason",
			call:  call{method: http.MethodPost, path: "/api/stories/" + id.String() + "/report", body: map[string]string{"reason": "   "}},
			field: "reason",
		},
		{
			name:  "malformed story id",
			call:  call{method: http.MethodPost, path: "/api/stories/not-a-uuid/view"},
			field: "id",
		},
		{
			name:  "bulk ids must be uuids",
			call:  call{method: http.MethodPost, path: "/api/admin/stories/bulk-moderate", body: map[string]any{"story_ids": []string{"nope"}, "decision": "approved"}, headers: staff()},
			field: "story_ids[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := a.do(t, tt.call)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))
			body := decode[map[string]any](t, raw)
			assert.Equal(t, true, body["error"])
			assert.Equal(t, tt.field, body["field"])
		})
	}

	resp, _ := a.do(t, call{method: http.MethodPost, path: "/api/stories/" + uuid.NewString() + "/like"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBulkModerateReportsPartialFailure(t *testing.T) {
	a := newTestApp(t)
	first := a.submit(t, "First")
	second := a.submit(t, "Second")
	missing := uuid.New()

	resp, raw := a.do(t, call{
		method: http.MethodPost, path: "/api/admin/stories/bulk-moderate", headers: staff(),
		body: map[string]any{"story_ids": []string{first.String(), missing.String(), second.String()}, "decision": "declined"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	result := decode[services.BulkResult](t, raw)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, missing, result.Failed[0].ID)

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/stats", headers: staff()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[services.ModerationStats](t, raw)
	assert.EqualValues(t, 2, stats.Counts[models.StatusDeclined])
	assert.Nil(t, stats.FeaturedID)
}

func TestAdminDeleteAndList(t *testing.T) {
	a := newTestApp(t)
	keep := a.submit(t, "Keep this one")
	drop := a.submit(t, "Drop this one")

	resp, _ := a.do(t, call{method: http.MethodDelete, path: "/api/admin/stories/" + drop.String(), headers: staff()})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = a.do(t, call{method: http.MethodDelete, path: "/api/admin/stories/" + drop.String(), headers: staff()})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw := a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/?status=pending&limit=500", headers: staff()})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	list := decode[struct {
		Stories []models.Story `json:"stories"`
		Total   int64          `json:"total"`
		Limit   int            `json:"limit"`
	}](t, raw)
	require.Len(t, list.Stories, 1)
	assert.Equal(t, keep, list.Stories[0].ID)
	assert.Equal(t, services.MaxPageSize, list.Limit)

	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/admin/stories/?status=archived", headers: staff()})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/admin/stories/reconcile", headers: staff()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode[map[string]any](t, raw)["scanned"])
}

func TestAuthFlow(t *testing.T) {
	a := newTestApp(t)

	resp, raw := a.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"email": "New@Campus.edu", "password": "correct-horse",
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, _ = a.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"email": "new@campus.edu", "password": "correct-horse",
	}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = a.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "new@campus.edu", "password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "new@campus.edu", "password": "correct-horse",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[map[string]any](t, raw)["access_token"].(string)

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/api/auth/me", headers: bearer(token)})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, models.TierRegistered, decode[map[string]any](t, raw)["tier"])

	resp, _ = a.do(t, call{method: http.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A registered submitter keeps its tier on the stored story.
	resp, raw = a.do(t, call{method: http.MethodPost, path: "/api/stories/", headers: bearer(token), body: map[string]string{
		"title": "Signed story", "body": storyBody,
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	id := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, raw).ID
	stored, err := a.repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.TierRegistered, stored.SubmitterTier)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	resp, raw := a.do(t, call{method: http.MethodGet, path: "/api/health"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, raw)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, config.StoreDriverMemory, health["store"])
	assert.Empty(t, resp.Header.Get(middleware.SessionHeader), "health runs before identity resolution")

	resp, raw = a.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(raw), "go_goroutines"))
}

func registerReq(email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{Email: email, Password: "long-enough-password"}
}

func bearer(token string) map[string]string {
	return map[string]string{fiber.HeaderAuthorization: "Bearer " + token}
}
