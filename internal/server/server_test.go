package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/config"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/notify"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/service"
	"github.com/VrtlyJoe/bug-cutter-frontend/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	resolveErr error
}

func (f *fakeResolver) ResolveWorkspace(ctx context.Context, token string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "cloud-1", nil
}

func (f *fakeResolver) GetProfile(ctx context.Context, token string) (models.Profile, error) {
	return models.Profile{AccountID: "acc-1", Name: "Jo"}, nil
}

type fakeTracker struct {
	issueKey     string
	attachErrOn  int
	attachCount  int
	userCalls    int
	attachments  []string
}

func (f *fakeTracker) CreateIssue(ctx context.Context, draft models.IssueDraft, categoryFieldID string) (string, error) {
	return f.issueKey, nil
}

func (f *fakeTracker) UploadAttachment(ctx context.Context, issueKey string, att models.Attachment) error {
	f.attachCount++
	f.attachments = append(f.attachments, att.Filename)
	if f.attachErrOn != 0 && f.attachCount == f.attachErrOn {
		return &models.UpstreamError{Op: "upload attachment", StatusCode: 500}
	}
	return nil
}

func (f *fakeTracker) CreateSubtask(ctx context.Context, parentKey, summary string) error {
	return nil
}

func (f *fakeTracker) SearchIssues(ctx context.Context, query string) ([]models.IssueSummary, error) {
	return []models.IssueSummary{{Key: "VT-10", Summary: "Login broken"}}, nil
}

func (f *fakeTracker) GetIssue(ctx context.Context, issueKey string) (models.IssueDetails, error) {
	return models.IssueDetails{Key: issueKey, Summary: "Login broken", Subtasks: []string{}}, nil
}

func (f *fakeTracker) GetPriorities(ctx context.Context) ([]string, error) {
	return []string{"High"}, nil
}

func (f *fakeTracker) FindCategoryField(ctx context.Context) (models.CategoryField, bool, error) {
	return models.CategoryField{}, false, nil
}

func (f *fakeTracker) SearchUsers(ctx context.Context, query string) ([]models.UserRecord, error) {
	f.userCalls++
	return []models.UserRecord{{AccountID: "acc-1", DisplayName: "Jo"}}, nil
}

func (f *fakeTracker) GetComponents(ctx context.Context) ([]string, error) {
	return []string{"Web UI"}, nil
}

type fakeSlack struct {
	calls int
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.calls++
	return channelID, "1234.5678", nil
}

func newTestServer(tracker *fakeTracker, resolver *fakeResolver, slackAPI *fakeSlack) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{FrontendURL: "https://form.example.com"},
		Jira: config.JiraConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURI:  "https://api.example.com/auth/callback",
			ProjectKey:   "VT",
			SiteURL:      "https://example.atlassian.net",
		},
	}
	svc := service.New(resolver, func(ctx context.Context, cloudID, token string) (service.TrackerClient, error) {
		return tracker, nil
	})
	notifier := notify.NewNotifierWithClient(slackAPI, "C0123456789", cfg.Jira.SiteURL)
	return New(cfg, svc, notifier)
}

func submitForm(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, data := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit_bug/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeTracker{issueKey: "VT-1"}, &fakeResolver{}, &fakeSlack{})
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "live")
}

func TestSubmitBugSuccess(t *testing.T) {
	tracker := &fakeTracker{issueKey: "VT-123"}
	slackAPI := &fakeSlack{}
	srv := newTestServer(tracker, &fakeResolver{}, slackAPI)

	req := submitForm(t, map[string]string{
		"token":       "test-token",
		"summary":     "Broken button",
		"description": "It does nothing",
		"priority":    "High",
	}, map[string][]byte{"shot.png": []byte("png-bytes")})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Success  bool   `json:"success"`
		IssueKey string `json:"issue_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "VT-123", body.IssueKey)
	assert.Equal(t, []string{"shot.png"}, tracker.attachments)
	assert.Equal(t, 1, slackAPI.calls)
}

func TestSubmitBugMissingToken(t *testing.T) {
	srv := newTestServer(&fakeTracker{issueKey: "VT-1"}, &fakeResolver{}, &fakeSlack{})

	req := submitForm(t, map[string]string{"summary": "x", "description": "y"}, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitBugValidationError(t *testing.T) {
	slackAPI := &fakeSlack{}
	srv := newTestServer(&fakeTracker{issueKey: "VT-1"}, &fakeResolver{}, slackAPI)

	req := submitForm(t, map[string]string{
		"token":       "test-token",
		"summary":     "   ",
		"description": "details",
	}, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "summary")
	// No notification for a rejected draft.
	assert.Equal(t, 0, slackAPI.calls)
}

func TestSubmitBugPartialFailureSurfacesIssueKey(t *testing.T) {
	tracker := &fakeTracker{issueKey: "VT-9", attachErrOn: 2}
	slackAPI := &fakeSlack{}
	srv := newTestServer(tracker, &fakeResolver{}, slackAPI)

	req := submitForm(t, map[string]string{
		"token":       "test-token",
		"summary":     "Broken",
		"description": "details",
	}, map[string][]byte{"a.png": []byte("a"), "b.png": []byte("b")})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body struct {
		IssueKey string `json:"issue_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VT-9", body.IssueKey)
	// The submission never reached the success path, so no notification.
	assert.Equal(t, 0, slackAPI.calls)
}

func TestGetOptionsAuthError(t *testing.T) {
	resolver := &fakeResolver{resolveErr: &models.AuthError{Reason: "expired"}}
	srv := newTestServer(&fakeTracker{}, resolver, &fakeSlack{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/options?token=bad", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOptionsMissingToken(t *testing.T) {
	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/options", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchUsersEmptyQuery(t *testing.T) {
	tracker := &fakeTracker{}
	srv := newTestServer(tracker, &fakeResolver{}, &fakeSlack{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/search?token=t&q=", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, tracker.userCalls)
}

func TestSearchBugs(t *testing.T) {
	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search_bugs?token=t&q=login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "VT-10")
}

func TestAddSubtasks(t *testing.T) {
	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})

	form := url.Values{"token": {"t"}, "subtasks": {"one\ntwo"}}
	req := httptest.NewRequest(http.MethodPost, "/bug/VT-10/add_subtask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "true")
}

func TestAuthStartRedirect(t *testing.T) {
	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/start", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "auth.atlassian.com/authorize")
	assert.Contains(t, location, "audience=api.atlassian.com")
	assert.Contains(t, location, "prompt=consent")
	assert.Contains(t, location, "state=")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, stateCookieName, cookies[0].Name)
}

func TestAuthCallback(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer"}`))
	}))
	defer tokenServer.Close()

	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})
	srv.oauth.config.Endpoint.TokenURL = tokenServer.URL

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "https://form.example.com?access_token="))
	assert.Contains(t, location, "fresh-token")
}

func TestAuthCallbackMissingCode(t *testing.T) {
	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthCallbackStateMismatch(t *testing.T) {
	srv := newTestServer(&fakeTracker{}, &fakeResolver{}, &fakeSlack{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
