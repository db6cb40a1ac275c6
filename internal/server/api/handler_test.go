package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comfort-stereo/gatekeeper/internal/common"
	"github.com/comfort-stereo/gatekeeper/internal/logging"
	"github.com/comfort-stereo/gatekeeper/internal/server/models"
)

type fakeService struct {
	createOut *models.User
	createErr error

	loginOut string
	loginErr error

	refreshOut string
	refreshErr error

	logoutOut bool
	logoutErr error

	verifyOut    bool
	verifyErr    error
	verifyUserID string
	verifyCode   string

	authOut   *models.User
	authErr   error
	authToken string

	getOut *models.User
	getErr error

	listOut []*models.User
	listErr error
}

func (f *fakeService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	return f.createOut, f.createErr
}

func (f *fakeService) Login(ctx context.Context, username, password string) (string, error) {
	return f.loginOut, f.loginErr
}

func (f *fakeService) Refresh(ctx context.Context, token string) (string, error) {
	return f.refreshOut, f.refreshErr
}

func (f *fakeService) Logout(ctx context.Context, token string) (bool, error) {
	return f.logoutOut, f.logoutErr
}

func (f *fakeService) VerifyEmail(ctx context.Context, userID, code string) (bool, error) {
	f.verifyUserID = userID
	f.verifyCode = code
	return f.verifyOut, f.verifyErr
}

func (f *fakeService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	f.authToken = token
	return f.authOut, f.authErr
}

func (f *fakeService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return f.getOut, f.getErr
}

func (f *fakeService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return f.getOut, f.getErr
}

func (f *fakeService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return f.listOut, f.listErr
}

func newTestHandler(svc *fakeService) *Handler {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewHandler(svc, logger)
}

func doRequest(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestCreateUser_Created(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &fakeService{createOut: &models.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$secret",
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/users",
		`{"username":"alice","email":"alice@x.com","password":"Secr3t!"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "u-1", body["id"])
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, body, "email_verified_at")
}

func TestCreateUser_ConflictCarriesField(t *testing.T) {
	cases := []struct {
		err   error
		field string
	}{
		{common.ErrorUsernameTaken, "username"},
		{common.ErrorEmailTaken, "email"},
	}
	for _, tc := range cases {
		svc := &fakeService{createErr: tc.err}
		rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/users",
			`{"username":"alice","email":"alice@x.com","password":"Secr3t!"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		var body errorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, tc.field, body.Field)
	}
}

func TestCreateUser_WeakPassword(t *testing.T) {
	svc := &fakeService{createErr: common.ErrorWeakPassword}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/users",
		`{"username":"alice","email":"alice@x.com","password":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUser_MalformedBody(t *testing.T) {
	rec := doRequest(t, newTestHandler(&fakeService{}), http.MethodPost, "/api/users", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_OK(t *testing.T) {
	svc := &fakeService{loginOut: "tok-1"}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/login",
		`{"username":"alice","password":"Secr3t!"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "tok-1", body["token"])
}

func TestLogin_Unauthorized(t *testing.T) {
	svc := &fakeService{loginErr: common.ErrorInvalidCredentials}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/login",
		`{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_OK(t *testing.T) {
	svc := &fakeService{refreshOut: "tok-2"}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/refresh", `{"token":"tok-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "tok-2", body["token"])
}

func TestRefresh_InvalidSession(t *testing.T) {
	svc := &fakeService{refreshErr: common.ErrorInvalidSession}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/refresh", `{"token":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ReportsExistence(t *testing.T) {
	svc := &fakeService{logoutOut: true}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/logout", `{"token":"tok-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	decodeBody(t, rec, &body)
	assert.True(t, body["existed"])
}

func TestVerifyEmail_PassesPathIDAndCode(t *testing.T) {
	svc := &fakeService{verifyOut: true}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/users/u-1/verify-email",
		`{"code":"ABCDEF"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", svc.verifyUserID)
	assert.Equal(t, "ABCDEF", svc.verifyCode)

	var body map[string]bool
	decodeBody(t, rec, &body)
	assert.True(t, body["verified"])
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	svc := &fakeService{verifyErr: common.ErrorNotFound}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/users/ghost/verify-email",
		`{"code":"ABCDEF"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSession_ResolvesBearerToken(t *testing.T) {
	svc := &fakeService{authOut: &models.User{ID: "u-1", Username: "alice", Email: "alice@x.com"}}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-1", svc.authToken)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "u-1", body["id"])
}

func TestSession_MissingToken(t *testing.T) {
	rec := doRequest(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_InvalidToken(t *testing.T) {
	svc := &fakeService{authErr: common.ErrorInvalidSession}
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	svc := &fakeService{getErr: common.ErrorNotFound}
	rec := doRequest(t, newTestHandler(svc), http.MethodGet, "/api/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUsers_ByUsernameQuery(t *testing.T) {
	svc := &fakeService{getOut: &models.User{ID: "u-1", Username: "alice", Email: "alice@x.com"}}
	rec := doRequest(t, newTestHandler(svc), http.MethodGet, "/api/users?username=alice", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "alice", body["username"])
}

func TestListUsers_All(t *testing.T) {
	svc := &fakeService{listOut: []*models.User{
		{ID: "u-1", Username: "alice"},
		{ID: "u-2", Username: "bob"},
	}}
	rec := doRequest(t, newTestHandler(svc), http.MethodGet, "/api/users", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]any
	decodeBody(t, rec, &body)
	require.Len(t, body, 2)
	assert.Equal(t, "bob", body[1]["username"])
}

func TestStoreUnavailable_Maps503(t *testing.T) {
	svc := &fakeService{loginErr: common.ErrorStoreUnavailable}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/login",
		`{"username":"alice","password":"Secr3t!"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInternalError_Maps500AndHidesDetail(t *testing.T) {
	svc := &fakeService{loginErr: common.ErrorInternal}
	rec := doRequest(t, newTestHandler(svc), http.MethodPost, "/api/login",
		`{"username":"alice","password":"Secr3t!"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "internal error", body.Error)
}
