package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/ireporter/models"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestAuthorizeRejectsMissingToken(t *testing.T) {
	ts := newTestServer()
	rec, env := do(t, ts.Handler(), http.MethodGet, "/api/v1/red-flags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Status)
	assert.NotEmpty(t, env.Error)
}

func TestAuthorizeRejectsUnknownToken(t *testing.T) {
	ts := newTestServer()
	rec, _ := do(t, ts.Handler(), http.MethodGet, "/api/v1/red-flags", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginReturnsTokenInFirstElement(t *testing.T) {
	ts := newTestServer()
	rec, env := do(t, ts.Handler(), http.MethodPost, "/api/v1/auth/login", "",
		jsonBody{"email": "ADA@example.com", "password": "Secret#123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var data []models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, "owner-token", data[0].Token)
	assert.Equal(t, "Ada Obi", data[0].User.Name)
}

func TestLoginValidatesBody(t *testing.T) {
	ts := newTestServer()
	rec, env := do(t, ts.Handler(), http.MethodPost, "/api/v1/auth/login", "", jsonBody{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "email")
}

func TestLoginIsRateLimited(t *testing.T) {
	ts := newTestServer()
	ts.Config.AuthRateLimit = 1
	h := ts.Handler()

	body := jsonBody{"email": "ada@example.com", "password": "Secret#123"}
	rec, _ := do(t, h, http.MethodPost, "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Status)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer()
	h := ts.Handler()

	rec, _ := do(t, h, http.MethodGet, "/api/v1/auth/logout", "other-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"other-token"}, ts.auth.revoked)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/auth/profile", "other-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetReportReturnsSingleElementArray(t *testing.T) {
	ts := newTestServer()
	r := ts.seed(models.KindRedFlag, models.StatusDraft)

	rec, env := do(t, ts.Handler(), http.MethodGet, "/api/v1/red-flags/1", "other-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data []models.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, r.Title, data[0].Title)
	assert.Equal(t, models.StatusDraft, data[0].Status)
	assert.Equal(t, "Ada", data[0].FirstName)
}

func TestGetReportOfOtherKindIsNotFound(t *testing.T) {
	ts := newTestServer()
	ts.seed(models.KindRedFlag, models.StatusDraft)

	rec, env := do(t, ts.Handler(), http.MethodGet, "/api/v1/interventions/1", "owner-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Intervention not found", env.Error)
}

func TestListReportsFilters(t *testing.T) {
	ts := newTestServer()
	ts.seed(models.KindRedFlag, models.StatusDraft)
	ts.seed(models.KindRedFlag, models.StatusResolved)
	ts.seed(models.KindIntervention, models.StatusDraft)
	h := ts.Handler()

	_, env := do(t, h, http.MethodGet, "/api/v1/red-flags?status=Resolved", "owner-token", nil)
	var data []models.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, models.StatusResolved, data[0].Status)

	_, env = do(t, h, http.MethodGet, "/api/v1/red-flags?mine=true", "other-token", nil)
	data = nil
	_ = json.Unmarshal(env.Data, &data)
	assert.Empty(t, data)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/red-flags?status=archived", "owner-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReportMultipart(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "  Pothole "))
	require.NoError(t, w.WriteField("description", "Deep pothole on Kampala Road"))
	part, err := w.CreateFormFile("images", "road.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interventions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer owner-token")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var data []models.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, "Pothole", data[0].Title)
	assert.Equal(t, models.KindIntervention, data[0].Type)
	assert.Equal(t, []string{"reports/images/road.png"}, data[0].Images)
}

func TestCreateReportRequiresTitle(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("description", "no title"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/red-flags", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer owner-token")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlankReportFieldsAreRejected(t *testing.T) {
	ts := newTestServer()
	draft := ts.seed(models.KindRedFlag, models.StatusDraft)
	h := ts.Handler()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "   "))
	require.NoError(t, w.WriteField("description", "\t\n"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/red-flags", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer owner-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, ts.reports.reports, 1)

	rec, _ = do(t, h, http.MethodPut, "/api/v1/red-flags/1", "owner-token", jsonBody{"title": "New title", "description": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Collapsed at dawn", draft.Description)
}

func TestMutationGate(t *testing.T) {
	ts := newTestServer()
	draft := ts.seed(models.KindRedFlag, models.StatusDraft)
	resolved := ts.seed(models.KindRedFlag, models.StatusResolved)
	h := ts.Handler()
	fields := jsonBody{"title": "New title", "description": "New description"}

	rec, _ := do(t, h, http.MethodPut, "/api/v1/red-flags/1", "other-token", fields)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, h, http.MethodPut, "/api/v1/red-flags/2", "owner-token", fields)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, env.Error, "RESOLVED")
	assert.Equal(t, "Broken bridge", resolved.Title)

	rec, _ = do(t, h, http.MethodPut, "/api/v1/red-flags/1", "owner-token", fields)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New title", draft.Title)

	rec, _ = do(t, h, http.MethodPatch, "/api/v1/red-flags/2/location", "owner-token", jsonBody{"latitude": 1.5, "longitude": 30.1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/red-flags/2", "owner-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/red-flags/1", "owner-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, ts.reports.reports, draft.ID)
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer()
	r := ts.seed(models.KindRedFlag, models.StatusDraft)
	h := ts.Handler()

	rec, env := do(t, h, http.MethodPatch, "/api/v1/red-flags/1/status", "owner-token", jsonBody{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotEmpty(t, env.Error)
	assert.Equal(t, models.StatusDraft, r.Status)

	rec, _ = do(t, h, http.MethodPatch, "/api/v1/red-flags/1/status", "admin-token", jsonBody{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/v1/red-flags/1/status", "admin-token", jsonBody{"status": "resolved"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, models.StatusDraft, r.Status)

	rec, env = do(t, h, http.MethodPatch, "/api/v1/red-flags/1/status", "admin-token", jsonBody{"status": "Under Investigation"})
	require.Equal(t, http.StatusOK, rec.Code)
	var data []models.ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.StatusUnderInvestigation, data[0].Status)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ireporter_status_transitions_total{from="draft",kind="red-flag",to="under-investigation"}`)
}

func TestCommentsRouteUnderSingularAndPluralKind(t *testing.T) {
	ts := newTestServer()
	ts.seed(models.KindIntervention, models.StatusDraft)
	h := ts.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/intervention/1/comments", "other-token", jsonBody{"comment_text": "Seen it too"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/api/v1/interventions/1/comments", "owner-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []models.CommentResponse
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Seen it too", comments[0].Text)

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/comments/1", "owner-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = do(t, h, http.MethodDelete, "/api/v1/comments/1", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToggleUpvote(t *testing.T) {
	ts := newTestServer()
	ts.seed(models.KindRedFlag, models.StatusDraft)
	h := ts.Handler()

	_, env := do(t, h, http.MethodPost, "/api/v1/red-flag/1/toggle-upvote", "other-token", nil)
	var summary models.UpvoteSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, models.UpvoteSummary{Count: 1, UserUpvoted: true}, summary)

	_, env = do(t, h, http.MethodGet, "/api/v1/red-flags/1/upvotes", "owner-token", nil)
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, models.UpvoteSummary{Count: 1, UserUpvoted: false}, summary)

	_, env = do(t, h, http.MethodPost, "/api/v1/red-flag/1/toggle-upvote", "other-token", nil)
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, models.UpvoteSummary{Count: 0, UserUpvoted: false}, summary)
}

func TestAdminOnlyUserListing(t *testing.T) {
	ts := newTestServer()
	h := ts.Handler()

	rec, _ := do(t, h, http.MethodGet, "/api/v1/auth/users", "owner-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/api/v1/auth/users", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []models.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 3)
}

func TestServeUpload(t *testing.T) {
	ts := newTestServer()
	ts.media.files["reports/images/a.png"] = []byte("png-bytes")
	h := ts.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/reports/images/a.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/reports/images/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationSocketReceivesPublished(t *testing.T) {
	ts := newTestServer()
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/notifications/ws?token=owner-token"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.Hub.Connections(ts.owner.ID) == 1 }, time.Second, 10*time.Millisecond)

	ts.Hub.Publish(ts.owner.ID, &models.Notification{UserID: ts.owner.ID, ReportID: 7, Title: "Red Flag updated", Message: "now RESOLVED"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Notification
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint(7), got.ReportID)
	assert.Equal(t, "now RESOLVED", got.Message)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ts.Hub.Connections(ts.owner.ID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestSocketQueryTokenOnlyForUpgrades(t *testing.T) {
	ts := newTestServer()
	rec, _ := do(t, ts.Handler(), http.MethodGet, "/api/v1/notifications?token=owner-token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// jsonBody is shorthand for JSON request bodies.
type jsonBody map[string]interface{}

func TestForgotPasswordEmailsLinkWithoutRevealingAccounts(t *testing.T) {
	ts := newTestServer()
	mail := &fakeMailer{}
	ts.Mail = mail
	h := ts.Handler()

	rec, env := do(t, h, http.MethodPost, "/api/v1/auth/forgot-password", "", jsonBody{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	known := env.Message

	rec, env = do(t, h, http.MethodPost, "/api/v1/auth/forgot-password", "", jsonBody{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, known, env.Message)

	require.Len(t, mail.links, 1)
	assert.Equal(t, "ada@example.com http://localhost:3002/reset-password/reset%2Fada@example.com", mail.links[0])
	assert.Equal(t, []time.Duration{30 * time.Minute}, mail.ttls)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/auth/forgot-password", "", jsonBody{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPassword(t *testing.T) {
	ts := newTestServer()
	h := ts.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/auth/reset-password/good-reset", "", jsonBody{"password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"brand-new-pass"}, ts.auth.resets)

	rec, env := do(t, h, http.MethodPost, "/api/v1/auth/reset-password/stale", "", jsonBody{"password": "brand-new-pass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reset link is invalid or has expired", env.Error)
}
